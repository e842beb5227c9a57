package timeline

import (
	"fmt"
	"regexp"

	"sleuth/internal/incident"
)

// changePattern captures one "what changed" fact from artifact content.
type changePattern struct {
	category string
	re       *regexp.Regexp
}

// changePatterns is immutable and shared read-only, like the classifier table.
// Deploy-shaped patterns are only applied to deploy-history artifacts; the
// config pattern is applied to everything.
var changePatterns = []changePattern{
	{"deployment", regexp.MustCompile(`(?i)\b(deployed|deploying|deployment)\b[:\s]*(.{0,100})`)},
	{"deployment", regexp.MustCompile(`(?i)\b(rollback|rolled\s+back|reverting)\b[:\s]*(.{0,100})`)},
	{"deployment", regexp.MustCompile(`(?i)\b(version|release|build)[:\s]+(v?[\d][\w.-]*)`)},
	{"deployment", regexp.MustCompile(`(?i)\b(image|container)[:\s]+([^\s]+:[^\s]+)`)},
}

var configChangeRe = regexp.MustCompile(`(?i)(config|setting|parameter)[:\s]+(\w+)[:\s=]+([^\n]+)`)

// ExtractChanges scans artifacts for deployment and configuration change
// facts. These feed the oracle prompt and the what_changed result section.
func ExtractChanges(artifacts []incident.Artifact) []incident.WhatChanged {
	var changes []incident.WhatChanged

	for _, a := range artifacts {
		if a.Type == incident.ArtifactDeployHistory {
			for _, cp := range changePatterns {
				for _, m := range cp.re.FindAllStringSubmatch(a.Content, -1) {
					desc := m[1]
					if len(m) > 2 && m[2] != "" {
						desc = fmt.Sprintf("%s: %s", m[1], m[2])
					}
					changes = append(changes, incident.WhatChanged{
						Category:    cp.category,
						Description: truncate(desc, 150),
						SourceID:    a.SourceID,
					})
				}
			}
		}

		for _, m := range configChangeRe.FindAllStringSubmatch(a.Content, -1) {
			changes = append(changes, incident.WhatChanged{
				Category:    "config",
				Description: fmt.Sprintf("%s = %s", m[2], truncate(m[3], 50)),
				SourceID:    a.SourceID,
			})
		}
	}
	return changes
}
