package downloader

import (
	"fmt"
	"strings"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/pkg/progress"
)

// Preparer is C4: for a given episode it resolves the winning video/audio
// stream URLs, probes their declared size, and computes (or keeps) the
// chunk plan — grounded on spec.md §4.4's five-step preference-and-probe
// algorithm. It never downloads media bytes itself; that's C2/C5's job.
type Preparer struct {
	client *biliclient.Client
	cfg    *config.Downloads
}

// NewPreparer builds a Preparer against the shared API client and the
// loaded download preferences (quality/codec priority lists, CDN prefix).
func NewPreparer(client *biliclient.Client, cfg *config.Downloads) *Preparer {
	return &Preparer{client: client, cfg: cfg}
}

// Prepare fetches the manifest for p's episode type and fills in the
// video/audio sub-tasks' url/quality/codec/content_length fields and chunk
// plans. Safe to call repeatedly — the chunk plan is only recomputed when
// content_length has changed, per spec.md §4.4 step 6.
func (pr *Preparer) Prepare(p *progress.DownloadProgress) error {
	manifest, err := pr.fetchManifest(p)
	if err != nil {
		return fmt.Errorf("failed to fetch media manifest: %w", err)
	}

	if p.Video.Selected && !p.Video.Completed {
		if err := pr.prepareVideo(p, manifest.Videos); err != nil {
			return err
		}
	}
	if p.Audio.Selected && !p.Audio.Completed {
		pr.prepareAudio(p, manifest.Audios)
	}
	return nil
}

func (pr *Preparer) fetchManifest(p *progress.DownloadProgress) (biliclient.MediaManifest, error) {
	switch p.EpisodeType {
	case progress.EpisodeNormal:
		return pr.client.GetNormalURL(p.AID, p.CID)
	case progress.EpisodeBangumi:
		return pr.client.GetBangumiURL(p.AID, p.CID)
	case progress.EpisodeCheese:
		return pr.client.GetCheeseURL(p.AID, p.CID)
	default:
		return biliclient.MediaManifest{}, fmt.Errorf("unknown episode type %v", p.EpisodeType)
	}
}

func (pr *Preparer) prepareVideo(p *progress.DownloadProgress, candidates []biliclient.StreamCandidate) error {
	winner, length, err := pr.pickStream(candidates, pr.cfg.VideoQualityPriority, pr.cfg.CodecTypePriority)
	if err != nil {
		return fmt.Errorf("failed to obtain media URL: %w", err)
	}

	if p.Video.ContentLength != length {
		p.Video.ContentLength = length
		p.Video.Chunks = progress.PlanChunks(length)
		p.Video.Completed = false
	}
	p.Video.URL = winner.url
	p.Video.Quality = winner.candidate.QualityID
	p.Video.Codec = winner.candidate.Codec
	return nil
}

func (pr *Preparer) prepareAudio(p *progress.DownloadProgress, candidates []biliclient.StreamCandidate) {
	if len(candidates) == 0 {
		p.Audio.Completed = true
		return
	}
	winner, length, err := pr.pickStream(candidates, pr.cfg.AudioQualityPriority, nil)
	if err != nil {
		// No audio stream survived probing (e.g. all mirrors unreachable):
		// spec.md §4.4 step 4 treats "no audio stream present" as nothing
		// to do, same as an empty candidate list.
		p.Audio.Completed = true
		return
	}

	if p.Audio.ContentLength != length {
		p.Audio.ContentLength = length
		p.Audio.Chunks = progress.PlanChunks(length)
		p.Audio.Completed = false
	}
	p.Audio.URL = winner.url
	p.Audio.Quality = winner.candidate.QualityID
}

type streamWinner struct {
	candidate biliclient.StreamCandidate
	url       string
}

// pickStream implements spec.md §4.4 steps 3-5: probe every candidate URL
// for Content-Length (dropping URLs that don't yield one), rank surviving
// candidates by qualityPriority then codecPriority (first-match wins,
// unknowns sort last), then within the winning candidate prefer a URL
// whose host matches the configured CDN prefix, else the first survivor.
func (pr *Preparer) pickStream(candidates []biliclient.StreamCandidate, qualityPriority []int64, codecPriority []string) (streamWinner, uint64, error) {
	type probed struct {
		candidate biliclient.StreamCandidate
		urls      []string
		length    uint64
	}

	var survivors []probed
	for _, c := range candidates {
		var urls []string
		var length uint64
		for _, u := range c.URLs {
			l, err := pr.client.HeadContentLength(u)
			if err != nil {
				continue
			}
			urls = append(urls, u)
			length = l
		}
		if len(urls) == 0 {
			continue
		}
		survivors = append(survivors, probed{candidate: c, urls: urls, length: length})
	}

	if len(survivors) == 0 {
		return streamWinner{}, 0, fmt.Errorf("no candidate stream yielded a usable URL")
	}

	qualityRank := rankIndex(qualityPriority)
	bestQuality := int64(-1)
	bestQualityRank := len(qualityPriority) + 1
	for _, s := range survivors {
		rank, ok := qualityRank[s.candidate.QualityID]
		if !ok {
			rank = len(qualityPriority)
		}
		if rank < bestQualityRank {
			bestQualityRank = rank
			bestQuality = s.candidate.QualityID
		}
	}

	var atQuality []probed
	for _, s := range survivors {
		if s.candidate.QualityID == bestQuality {
			atQuality = append(atQuality, s)
		}
	}

	codecRank := rankStringIndex(codecPriority)
	best := atQuality[0]
	bestCodecRank := codecRankFor(best.candidate.Codec, codecRank, len(codecPriority))
	for _, s := range atQuality[1:] {
		rank := codecRankFor(s.candidate.Codec, codecRank, len(codecPriority))
		if rank < bestCodecRank {
			bestCodecRank = rank
			best = s
		}
	}

	url := best.urls[0]
	for _, u := range best.urls {
		if strings.Contains(u, pr.cfg.CDNHostPrefix) && pr.cfg.CDNHostPrefix != "" {
			url = u
			break
		}
	}

	return streamWinner{candidate: best.candidate, url: url}, best.length, nil
}

func rankIndex(priority []int64) map[int64]int {
	m := make(map[int64]int, len(priority))
	for i, v := range priority {
		if _, exists := m[v]; !exists {
			m[v] = i
		}
	}
	return m
}

func rankStringIndex(priority []string) map[string]int {
	m := make(map[string]int, len(priority))
	for i, v := range priority {
		if _, exists := m[v]; !exists {
			m[v] = i
		}
	}
	return m
}

func codecRankFor(codec string, ranks map[string]int, fallback int) int {
	if r, ok := ranks[codec]; ok {
		return r
	}
	return fallback
}
