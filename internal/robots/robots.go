// Package robots parses robots.txt and answers the two questions the audit
// asks of it: which sitemaps the file declares, and whether a given AI
// crawler is blocked from the site root.
package robots

import (
	"bufio"
	"strings"
)

// Group is one User-agent block with its accumulated path rules.
type Group struct {
	Agents   []string
	Allow    []string
	Disallow []string
}

// Rules is a parsed robots.txt.
type Rules struct {
	Groups   []Group
	Sitemaps []string
}

// Parse reads robots.txt text. Keys are case-normalized, '#' starts a
// comment, consecutive User-agent lines share a group, and Sitemap lines are
// collected separately regardless of position.
func Parse(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rules Rules
	current := Group{}
	flush := func() {
		if len(current.Agents) == 0 && len(current.Allow) == 0 && len(current.Disallow) == 0 {
			return
		}
		rules.Groups = append(rules.Groups, current)
		current = Group{}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := strings.TrimSpace(line[colon+1:])
		switch key {
		case "user-agent", "useragent":
			// A User-agent line after path rules starts a fresh group.
			if len(current.Agents) > 0 && (len(current.Allow) > 0 || len(current.Disallow) > 0) {
				flush()
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow":
			current.Allow = append(current.Allow, val)
		case "disallow":
			current.Disallow = append(current.Disallow, val)
		case "sitemap":
			if val != "" {
				rules.Sitemaps = append(rules.Sitemaps, val)
			}
		}
	}
	flush()
	return rules
}

// HasSitemapDirective reports whether any Sitemap line was present.
func (r Rules) HasSitemapDirective() bool {
	return len(r.Sitemaps) > 0
}

// groupsFor returns every group naming the bot, or, when none does, every
// wildcard group. Bot-specific rules always win over the '*' group.
func (r Rules) groupsFor(bot string) []Group {
	want := strings.ToLower(strings.TrimSpace(bot))
	var specific, wildcard []Group
	for _, g := range r.Groups {
		for _, a := range g.Agents {
			switch a {
			case want:
				specific = append(specific, g)
			case "*":
				wildcard = append(wildcard, g)
			}
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return wildcard
}

// IsBlocked reports whether the bot is barred from the site root. A bot is
// blocked when its governing group carries "Disallow: /" without an
// "Allow: /" overriding it. An empty or absent robots.txt allows everyone.
func (r Rules) IsBlocked(bot string) bool {
	groups := r.groupsFor(bot)
	if len(groups) == 0 {
		return false
	}
	disallowRoot, allowRoot := false, false
	for _, g := range groups {
		for _, p := range g.Disallow {
			if strings.TrimSpace(p) == "/" {
				disallowRoot = true
			}
		}
		for _, p := range g.Allow {
			if strings.TrimSpace(p) == "/" {
				allowRoot = true
			}
		}
	}
	return disallowRoot && !allowRoot
}

// BlockedBots filters the given bot list down to the blocked ones,
// preserving order.
func (r Rules) BlockedBots(bots []string) []string {
	var blocked []string
	for _, b := range bots {
		if r.IsBlocked(b) {
			blocked = append(blocked, b)
		}
	}
	return blocked
}
