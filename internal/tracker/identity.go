package tracker

// Page describes the browsing context an observer runs in.
type Page struct {
	URL   string
	Title string

	// Embedded is true when the observer runs inside a frame.
	Embedded bool
	// Referrer is the enclosing page URL when it can be derived.
	Referrer string
}

// Identity is the URL, title and hostname recorded for a page.
type Identity struct {
	URL      string
	Title    string
	Hostname string
}

// ResolveIdentity picks the identity to track. Inside a frame with a known
// enclosing page, the enclosing page's URL is used and its hostname doubles
// as the title; fallbackTitle covers URLs that do not parse.
func ResolveIdentity(p Page, fallbackTitle string) Identity {
	if p.Embedded && p.Referrer != "" {
		host := Hostname(p.Referrer)
		title := host
		if title == "" {
			title = fallbackTitle
		}
		return Identity{URL: p.Referrer, Title: title, Hostname: host}
	}

	host := Hostname(p.URL)
	title := p.Title
	if title == "" {
		title = host
	}
	if title == "" {
		title = fallbackTitle
	}
	return Identity{URL: p.URL, Title: title, Hostname: host}
}
