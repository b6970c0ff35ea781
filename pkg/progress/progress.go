// Package progress defines the wire-stable data model that is journaled to
// disk, handed between orchestrator components, and emitted to the UI.
package progress

import "time"

// EpisodeType is a sum type over the three content genres the platform
// serves. Kept as a string enum rather than a shared base struct per the
// "tagged-variant progress" design note.
type EpisodeType string

const (
	EpisodeNormal  EpisodeType = "normal"
	EpisodeBangumi EpisodeType = "bangumi"
	EpisodeCheese  EpisodeType = "cheese"
)

// MediaChunk is one [Start,End] inclusive byte range of a stream.
type MediaChunk struct {
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Completed bool   `json:"completed"`
}

// VideoTask is the video-stream sub-task.
type VideoTask struct {
	Selected      bool         `json:"selected"`
	URL           string       `json:"url"`
	Quality       int64        `json:"quality"`
	Codec         string       `json:"codec"`
	ContentLength uint64       `json:"content_length"`
	Chunks        []MediaChunk `json:"chunks"`
	Completed     bool         `json:"completed"`
}

// IsDone implements the sub-task completion predicate: !selected || completed.
func (t *VideoTask) IsDone() bool { return !t.Selected || t.Completed }

// AudioTask is the audio-stream sub-task; content without an audio track
// marks this Completed=true at prepare time (Selected is left unchanged).
type AudioTask struct {
	Selected      bool         `json:"selected"`
	URL           string       `json:"url"`
	Quality       int64        `json:"quality"`
	ContentLength uint64       `json:"content_length"`
	Chunks        []MediaChunk `json:"chunks"`
	Completed     bool         `json:"completed"`
}

func (t *AudioTask) IsDone() bool { return !t.Selected || t.Completed }

// VideoProcessTask drives the merge/chapter-embed/skip-embed stage.
type VideoProcessTask struct {
	MergeSelected       bool `json:"merge_selected"`
	EmbedChapterSelected bool `json:"embed_chapter_selected"`
	EmbedSkipSelected   bool `json:"embed_skip_selected"`
	Completed           bool `json:"completed"`
}

func (t *VideoProcessTask) IsDone() bool {
	if !t.MergeSelected && !t.EmbedChapterSelected && !t.EmbedSkipSelected {
		return true
	}
	return t.Completed
}

// DanmakuTask drives the xml/ass/json danmaku sibling outputs.
type DanmakuTask struct {
	XMLSelected  bool `json:"xml_selected"`
	ASSSelected  bool `json:"ass_selected"`
	JSONSelected bool `json:"json_selected"`
	Completed    bool `json:"completed"`
}

func (t *DanmakuTask) IsDone() bool {
	if !t.XMLSelected && !t.ASSSelected && !t.JSONSelected {
		return true
	}
	return t.Completed
}

// SubtitleTask, CoverTask, NfoTask, JsonTask all share the standard
// selected/completed shape.
type SubtitleTask struct {
	Selected  bool `json:"selected"`
	Completed bool `json:"completed"`
}

func (t *SubtitleTask) IsDone() bool { return !t.Selected || t.Completed }

type CoverTask struct {
	Selected  bool   `json:"selected"`
	URL       string `json:"url"`
	Completed bool   `json:"completed"`
}

func (t *CoverTask) IsDone() bool { return !t.Selected || t.Completed }

type NfoTask struct {
	Selected  bool `json:"selected"`
	Completed bool `json:"completed"`
}

func (t *NfoTask) IsDone() bool { return !t.Selected || t.Completed }

type JsonTask struct {
	Selected  bool `json:"selected"`
	Completed bool `json:"completed"`
}

func (t *JsonTask) IsDone() bool { return !t.Selected || t.Completed }

// DownloadProgress is the single unit of journaling, UI reporting, and
// recovery: one per episode-or-part.
type DownloadProgress struct {
	TaskID      string      `json:"task_id"`
	EpisodeType EpisodeType `json:"episode_type"`

	AID      int64  `json:"aid"`
	BVID     string `json:"bvid,omitempty"`
	CID      int64  `json:"cid"`
	EpID     int64  `json:"ep_id,omitempty"`
	Duration uint64 `json:"duration_seconds"`
	PubTS    int64  `json:"pub_ts"`

	CollectionTitle string `json:"collection_title"`
	EpisodeTitle    string `json:"episode_title"`
	EpisodeOrder    int64  `json:"episode_order"`
	PartTitle       string `json:"part_title,omitempty"`
	PartOrder       int64  `json:"part_order,omitempty"`
	UpName          string `json:"up_name,omitempty"`
	UpUID           int64  `json:"up_uid,omitempty"`

	EpisodeDir string `json:"episode_dir"`
	Filename   string `json:"filename"`

	Video   VideoTask         `json:"video_task"`
	Audio   AudioTask         `json:"audio_task"`
	Process VideoProcessTask  `json:"video_process_task"`
	Danmaku DanmakuTask       `json:"danmaku_task"`
	Subtitle SubtitleTask     `json:"subtitle_task"`
	Cover   CoverTask         `json:"cover_task"`
	Nfo     NfoTask           `json:"nfo_task"`
	Json    JsonTask          `json:"json_task"`

	CreateTS    int64  `json:"create_ts"`
	CompletedTS *int64 `json:"completed_ts,omitempty"`
}

// IsComplete reports whether every selected sub-task is complete and
// CompletedTS has been stamped — the invariant from spec §3/§8.
func (p *DownloadProgress) IsComplete() bool {
	return p.CompletedTS != nil &&
		p.Video.IsDone() && p.Audio.IsDone() && p.Process.IsDone() &&
		p.Danmaku.IsDone() && p.Subtitle.IsDone() && p.Cover.IsDone() &&
		p.Nfo.IsDone() && p.Json.IsDone()
}

// MarkComplete stamps CompletedTS; called by the task driver once a
// pipeline attempt has run every stage without error.
func (p *DownloadProgress) MarkComplete(now time.Time) {
	ts := now.Unix()
	p.CompletedTS = &ts
}

// ResetForRestart clears every sub-task's completed flag and all chunk
// completion flags, and clears CompletedTS — the §4.3 "restart" transition.
func (p *DownloadProgress) ResetForRestart() {
	p.Video.Completed = false
	for i := range p.Video.Chunks {
		p.Video.Chunks[i].Completed = false
	}
	p.Audio.Completed = false
	for i := range p.Audio.Chunks {
		p.Audio.Chunks[i].Completed = false
	}
	p.Process.Completed = false
	p.Danmaku.Completed = false
	p.Subtitle.Completed = false
	p.Cover.Completed = false
	p.Nfo.Completed = false
	p.Json.Completed = false
	p.CompletedTS = nil
}

// ResetVideoStream and ResetAudioStream clear a single stream's completed
// flag and all of its chunks' completed flags — used when the integrity
// verifier (C6) reports a failed MP4 walk. (The preparer replans a stream's
// chunks itself when content_length changes.)
func (p *DownloadProgress) ResetVideoStream() {
	p.Video.Completed = false
	for i := range p.Video.Chunks {
		p.Video.Chunks[i].Completed = false
	}
}

func (p *DownloadProgress) ResetAudioStream() {
	p.Audio.Completed = false
	for i := range p.Audio.Chunks {
		p.Audio.Chunks[i].Completed = false
	}
}
