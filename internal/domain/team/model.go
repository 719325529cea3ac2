package team

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrNameTaken is returned by repositories when a create hits the unique
// name constraint. Callers resolve the race by re-reading.
var ErrNameTaken = errors.New("team name already exists")

// Team is a canonical club record shared by matches from every source.
type Team struct {
	ID        string
	Name      string
	LogoURL   string
	CreatedAt time.Time
}

// PlaceholderLogoURL derives a stable avatar URL from the team name, used
// when a feed supplies no crest.
func PlaceholderLogoURL(name string) string {
	return "https://ui-avatars.com/api/?background=random&name=" + url.QueryEscape(strings.TrimSpace(name))
}
