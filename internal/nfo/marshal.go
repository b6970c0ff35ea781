package nfo

import "encoding/xml"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Marshal renders v (a Movie, Tvshow, or EpisodeDetails) as a Kodi-ready
// NFO document with the standard XML declaration prepended. Stdlib
// encoding/xml: no pack dependency offers an XML encoder and the shapes
// here are few and flat enough that a reflection-light library wouldn't
// earn its keep over tags Go's standard encoder already reads.
func Marshal(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xmlHeader)+len(body)+1)
	out = append(out, xmlHeader...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
