package parser

import (
	"bufio"
	"regexp"
	"strings"
)

var regexLink = regexp.MustCompile(`(vmess|vless|trojan|ss)://[a-zA-Z0-9_\-\.\:@\?=&%#+/\[\]]+`)

// ExtractLinks pulls supported proxy links out of free-form text, such as a
// subscription body or a scraped channel message.
func ExtractLinks(text string) []string {
	var links []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	scanner := bufio.NewScanner(strings.NewReader(text))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		for _, match := range regexLink.FindAllString(line, -1) {
			clean := strings.TrimRight(match, ".,;)\"")
			if clean != "" {
				links = append(links, clean)
			}
		}
	}
	return deduplicate(links)
}

func deduplicate(input []string) []string {
	seen := make(map[string]bool)
	list := []string{}
	for _, entry := range input {
		if !seen[entry] {
			seen[entry] = true
			list = append(list, entry)
		}
	}
	return list
}
