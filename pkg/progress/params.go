package progress

// CreateParams is the UI-supplied shape for constructing a new task. It
// carries the same identifiers as DownloadProgress but none of the
// downloader-owned state (URLs, chunks, completion flags) — those are
// filled in by the media preparer (C4) during the first prepare pass.
type CreateParams struct {
	EpisodeType EpisodeType

	AID      int64
	BVID     string
	CID      int64
	EpID     int64
	Duration uint64
	PubTS    int64

	CollectionTitle string
	EpisodeTitle    string
	EpisodeOrder    int64
	PartTitle       string
	PartOrder       int64
	UpName          string
	UpUID           int64

	MultiPart bool // true when this episode has more than one part
}

// FmtParams is the synthesized set of named placeholders the format-template
// engine (C9) resolves templates against. Every field here is intentionally
// named the same as a DownloadProgress field it mirrors, so template
// placeholders read as `{episode_title}`, `{up_name}`, etc.
type FmtParams struct {
	AID             int64
	BVID            string
	CID             int64
	EpID            int64
	CollectionTitle string
	EpisodeTitle    string
	EpisodeOrder    int64
	PartTitle       string
	PartOrder       int64
	UpName          string
	UpUID           int64
	PubTS           int64
}

// NewFmtParams synthesizes FmtParams from a DownloadProgress.
func NewFmtParams(p *DownloadProgress) FmtParams {
	return FmtParams{
		AID:             p.AID,
		BVID:            p.BVID,
		CID:             p.CID,
		EpID:            p.EpID,
		CollectionTitle: p.CollectionTitle,
		EpisodeTitle:    p.EpisodeTitle,
		EpisodeOrder:    p.EpisodeOrder,
		PartTitle:       p.PartTitle,
		PartOrder:       p.PartOrder,
		UpName:          p.UpName,
		UpUID:           p.UpUID,
		PubTS:           p.PubTS,
	}
}
