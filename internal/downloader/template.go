package downloader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ncruces/go-strftime"

	"github.com/bilidl/bilidl/pkg/progress"
)

// numberTemplatePattern matches {name} or {name:03d} style placeholders,
// generalized from greg's template.go replaceNumberTemplate to operate over
// an arbitrary field set instead of a fixed {episode}/{season} pair.
var numberTemplatePattern = regexp.MustCompile(`\{(\w+)(?::(\d+)d)?\}`)

// stringFields returns the string-valued placeholders resolvable against p.
func stringFields(p progress.FmtParams) map[string]string {
	return map[string]string{
		"bvid":             p.BVID,
		"collection_title": p.CollectionTitle,
		"episode_title":    p.EpisodeTitle,
		"part_title":       p.PartTitle,
		"up_name":          p.UpName,
	}
}

// numberFields returns the integer-valued placeholders resolvable against p,
// which additionally support zero-padding via {name:0Nd}.
func numberFields(p progress.FmtParams) map[string]int64 {
	return map[string]int64{
		"aid":           p.AID,
		"cid":           p.CID,
		"epid":          p.EpID,
		"episode_order": p.EpisodeOrder,
		"part_order":    p.PartOrder,
		"up_uid":        p.UpUID,
	}
}

// ResolveTemplate expands named placeholders in tmpl against p — spec.md
// §4.9 (C9). Unrecognized placeholders are left verbatim so a typo is
// visible to the user instead of silently vanishing.
//
// If tmpl contains a "%" anywhere, the whole template is run through
// strftime over PubTS first, so a directory template like
// "{collection_title}/%Y/%m" resolves the date before placeholder
// substitution runs over the rest.
func ResolveTemplate(tmpl string, p progress.FmtParams) string {
	result := tmpl

	if strings.Contains(result, "%") {
		pubTime := time.Unix(p.PubTS, 0).UTC()
		result = strftime.Format(result, pubTime)
	}

	for name, value := range stringFields(p) {
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}

	nums := numberFields(p)
	result = numberTemplatePattern.ReplaceAllStringFunc(result, func(match string) string {
		sub := numberTemplatePattern.FindStringSubmatch(match)
		name, pad := sub[1], sub[2]
		value, ok := nums[name]
		if !ok {
			return match
		}
		if pad != "" {
			width, err := strconv.Atoi(pad)
			if err == nil {
				return fmt.Sprintf("%0*d", width, value)
			}
		}
		return strconv.FormatInt(value, 10)
	})

	return result
}

// filenameReplacements mirrors greg's SanitizeFilename table: characters
// that are invalid or awkward in a path segment on at least one of
// Windows/macOS/Linux, mapped to a visually close safe substitute rather
// than dropped outright where a substitute exists.
var filenameReplacements = map[rune]string{
	'/':  "-",
	'\\': "-",
	':':  " -",
	'*':  "",
	'?':  "",
	'"':  "'",
	'<':  "",
	'>':  "",
	'|':  "-",
	'\n': " ",
	'\r': " ",
	'\t': " ",
}

// SanitizePathSegment strips or replaces filesystem-unsafe characters from
// a single path segment (not a full path — callers that build
// directory/filename pairs must sanitize each segment separately so a
// literal "/" in a title is never mistaken for an intended subdirectory).
func SanitizePathSegment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))

	for _, ch := range segment {
		if replacement, ok := filenameReplacements[ch]; ok {
			b.WriteString(replacement)
		} else if !unicode.IsPrint(ch) {
			continue
		} else {
			b.WriteRune(ch)
		}
	}

	cleaned := regexp.MustCompile(`\s+`).ReplaceAllString(b.String(), " ")
	cleaned = strings.Trim(cleaned, " .")

	if cleaned == "" {
		cleaned = "untitled"
	}
	if len(cleaned) > 200 {
		cleaned = cleaned[:200]
		if last := strings.LastIndex(cleaned, " "); last > 150 {
			cleaned = cleaned[:last]
		}
		cleaned = strings.TrimRight(cleaned, " .-")
	}
	return cleaned
}

// ResolveDirAndFilename expands tmpl against p, splits the result on "/",
// sanitizes each segment, drops empty segments, and returns the directory
// (joined under downloadDir) and filename stem separately — spec.md §4.9's
// path construction step. The last non-empty segment is the filename stem;
// everything before it is the directory.
func ResolveDirAndFilename(tmpl, downloadDir string, p progress.FmtParams) (dir string, filename string) {
	resolved := ResolveTemplate(tmpl, p)
	rawSegments := strings.Split(resolved, "/")

	var segments []string
	for _, s := range rawSegments {
		if strings.TrimSpace(s) == "" {
			continue
		}
		segments = append(segments, SanitizePathSegment(s))
	}
	if len(segments) == 0 {
		segments = []string{"untitled"}
	}

	filename = segments[len(segments)-1]
	dirParts := append([]string{downloadDir}, segments[:len(segments)-1]...)
	dir = filepath.Join(dirParts...)
	return dir, filename
}

// ValidateTemplate rejects an empty template, unbalanced braces, and unknown
// placeholder names. Config loading does not call it.
func ValidateTemplate(tmpl string) error {
	if tmpl == "" {
		return fmt.Errorf("template cannot be empty")
	}
	if strings.Count(tmpl, "{") != strings.Count(tmpl, "}") {
		return fmt.Errorf("unbalanced braces in template %q", tmpl)
	}

	var zero progress.FmtParams
	known := make(map[string]bool)
	for name := range stringFields(zero) {
		known[name] = true
	}
	for name := range numberFields(zero) {
		known[name] = true
	}

	for _, m := range numberTemplatePattern.FindAllStringSubmatch(tmpl, -1) {
		if !known[m[1]] {
			return fmt.Errorf("unknown template placeholder {%s}", m[1])
		}
	}
	return nil
}
