package travel

import (
	"fmt"
	"strings"
)

// Topics are the recommendation areas every plan is asked to cover.
var Topics = []string{
	"Transportation options and estimated costs",
	"Accommodation suggestions within budget",
	"Must-see attractions based on interests",
	"Daily itinerary outline",
	"Food and dining recommendations",
	"Local cultural experiences",
	"Shopping recommendations",
	"Safety tips for the destination",
}

// BuildPrompt creates the generation prompt for a request.
func BuildPrompt(r Request) string {
	r = r.Normalize()
	interests := r.Interests
	if interests == "" {
		interests = "general sightseeing"
	}

	var sb strings.Builder
	sb.WriteString("Act as a travel planning assistant.\n")
	sb.WriteString("Please create a detailed travel plan for a trip with the following details:\n")
	fmt.Fprintf(&sb, "- Departing from: %s\n", r.Source)
	fmt.Fprintf(&sb, "- Destination: %s\n", r.Destination)
	fmt.Fprintf(&sb, "- Travel dates: %s to %s\n", r.StartDate, r.EndDate)
	fmt.Fprintf(&sb, "- Budget: %s\n", r.Budget)
	fmt.Fprintf(&sb, "- Number of travelers: %s\n", r.Travelers)
	fmt.Fprintf(&sb, "- Interests: %s\n", interests)
	sb.WriteString("\nProvide specific recommendations for:\n")
	for i, topic := range Topics {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, topic)
	}
	sb.WriteString("\nFormat each section with a clear title and detailed content that is helpful for travelers.")
	return sb.String()
}
