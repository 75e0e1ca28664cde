package domoai

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

var (
	videoResultURLRe = regexp.MustCompile(`After:.*?(https:\S+)`)
	moveResultURLRe  = regexp.MustCompile(`Result:.*?(https:\S+)`)
)

// extractResultURL pulls a media url out of a plain-text result body, for the
// commands that sometimes report without an attachment.
func extractResultURL(re *regexp.Regexp, content string) (string, bool) {
	match := re.FindStringSubmatch(content)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}

// extractActionCustomIds scans the message's button rows and collects the
// custom_id of every enabled follow-up action. Labels U1..U4 map to upscale;
// a bare "Vary" button is the single-image case and becomes V1; V1..V4 map to
// vary. Disabled or unlabeled buttons never appear in the maps.
func extractActionCustomIds(message *discordgo.Message) (upscaleCustomIds, varyCustomIds map[string]string) {
	upscaleCustomIds = map[string]string{}
	varyCustomIds = map[string]string{}
	for _, component := range message.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, child := range row.Components {
			button, ok := child.(*discordgo.Button)
			if !ok {
				continue
			}
			if button.Disabled || button.Label == "" || button.CustomID == "" {
				continue
			}
			switch {
			case len(button.Label) >= 4 && button.Label[:4] == "Vary":
				varyCustomIds["V1"] = button.CustomID
			case button.Label[0] == 'U':
				upscaleCustomIds[button.Label] = button.CustomID
			case button.Label[0] == 'V':
				varyCustomIds[button.Label] = button.CustomID
			}
		}
	}
	return
}

// actionIndices turns {"U1": id, "U3": id} into [1, 3].
func actionIndices(customIds map[string]string) []int {
	if len(customIds) == 0 {
		return nil
	}
	indices := make([]int, 0, len(customIds))
	for label := range customIds {
		if len(label) < 2 {
			continue
		}
		index, err := strconv.Atoi(label[1:])
		if err != nil {
			continue
		}
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}
