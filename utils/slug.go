package utils

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL-safe slug with a short random suffix
// so two listings with the same title never collide.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return fmt.Sprintf("%s-%04d", slug, rand.Intn(10000))
}
