package fetcher

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/voyagen/channelvault/internal/models"
)

var (
	reTvgName   = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID     = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo   = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup     = regexp.MustCompile(`group-title="([^"]*)"`)
	reCommaName = regexp.MustCompile(`,([^\n\r\t]*)$`)
)

var errNoName = errors.New("no name in EXTINF")

// ParseM3U reads an extended M3U playlist and returns one channel per entry,
// in playlist order. group-title becomes the category and tvg-logo the logo.
// useTvgID prefers tvg-id over the comma title when tvg-name is empty.
// Entries without a usable name are dropped.
func ParseM3U(r io.Reader, useTvgID bool) ([]models.Channel, error) {
	var channels []models.Channel
	scanner := bufio.NewScanner(r)
	// Some playlists carry very long EXTINF lines.
	const maxSize = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)

	var extinf string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(strings.ToUpper(line), "#EXTINF"):
			// an EXTINF without a url line is replaced by the next one
			extinf = line
		case strings.HasPrefix(line, "#"):
		default:
			if extinf == "" {
				continue
			}
			info := extinf
			extinf = ""
			name, err := channelName(info, useTvgID)
			if err != nil {
				continue
			}
			channels = append(channels, models.Channel{
				Name:     name,
				URL:      line,
				Category: matchFirstPtr(reGroup, info),
				Logo:     matchFirstPtr(reTvgLogo, info),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func matchFirstPtr(re *regexp.Regexp, s string) *string {
	v := matchFirst(re, s)
	if v == "" {
		return nil
	}
	return &v
}

// channelName picks tvg-name, then tvg-id or the comma title depending on useTvgID.
func channelName(extinf string, useTvgID bool) (string, error) {
	if n := matchFirst(reTvgName, extinf); n != "" {
		return n, nil
	}
	id := matchFirst(reTvgID, extinf)
	alt := matchFirst(reCommaName, stripAttributes(extinf))
	first, second := alt, id
	if useTvgID {
		first, second = id, alt
	}
	if first != "" {
		return first, nil
	}
	if second != "" {
		return second, nil
	}
	return "", errNoName
}

// stripAttributes removes quoted attribute values so a comma inside one is
// not mistaken for the title separator.
func stripAttributes(extinf string) string {
	var b strings.Builder
	inQuote := false
	for _, r := range extinf {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			b.WriteRune(r)
		}
	}
	return b.String()
}
