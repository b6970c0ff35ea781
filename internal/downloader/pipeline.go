package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/internal/danmaku"
	"github.com/bilidl/bilidl/internal/ffmpeg"
	"github.com/bilidl/bilidl/internal/infocache"
	"github.com/bilidl/bilidl/internal/nfo"
	"github.com/bilidl/bilidl/pkg/progress"
)

// infoCacheTTL bounds how long the cover/nfo/json stages reuse the same
// info fetch for one episode before hitting the API again — long enough to
// cover one pipeline run's worth of sibling stages, short enough that a
// resumed task after a long pause still sees fresh metadata.
const infoCacheTTL = 30 * time.Minute

// sentinelSuffix marks an in-progress download so a crash mid-transfer
// never leaves something that looks like a finished artifact — spec.md
// §6's "sentinel suffix" glossary entry.
const sentinelSuffix = ".bilidl-incomplete-7f1c9ae2"

// execPipeline is C5: the ordered per-task stage sequence of spec.md §4.5.
// Each stage checks its own completion predicate and is safe to re-enter
// after a Failed/resume cycle.
type execPipeline struct {
	client        *biliclient.Client
	cfg           *config.Downloads
	preparer      *Preparer
	cache         *infocache.Cache
	chunkSem      chan struct{}
	bytesCounter  *int64
	chunkInterval time.Duration
	ffmpegBinary  string
	logger        *slog.Logger
}

// NewPipeline builds the C5 executor. ffmpegBinary may be empty — any stage
// that needs it will then fail with a clear "ffmpeg not available" error
// instead of silently skipping merge/embed. cache may be nil, in which case
// the cover/nfo/json stages each fetch info independently.
func NewPipeline(client *biliclient.Client, cfg *config.Downloads, cache *infocache.Cache, chunkSem chan struct{}, bytesCounter *int64, ffmpegBinary string, logger *slog.Logger) *execPipeline {
	return &execPipeline{
		client:        client,
		cfg:           cfg,
		preparer:      NewPreparer(client, cfg),
		cache:         cache,
		chunkSem:      chunkSem,
		bytesCounter:  bytesCounter,
		chunkInterval: time.Duration(cfg.ChunkDownloadIntervalSec * float64(time.Second)),
		ffmpegBinary:  ffmpegBinary,
		logger:        logger,
	}
}

// normalInfo, bangumiInfo, and cheeseInfo route every per-episode info
// fetch through the lazy cache so the cover, nfo, and json sibling stages
// of the same task share one API call instead of three.
func (pl *execPipeline) normalInfo(aid int64, bvid string) (biliclient.NormalInfo, error) {
	if pl.cache == nil {
		return pl.client.GetNormalInfo(aid, bvid)
	}
	return infocache.GetOrFetch(pl.cache, infocache.Key("normal_info", aid), infoCacheTTL, func() (biliclient.NormalInfo, error) {
		return pl.client.GetNormalInfo(aid, bvid)
	})
}

func (pl *execPipeline) bangumiInfo(epID int64) (biliclient.BangumiInfo, error) {
	if pl.cache == nil {
		return pl.client.GetBangumiInfo(epID)
	}
	return infocache.GetOrFetch(pl.cache, infocache.Key("bangumi_info", epID), infoCacheTTL, func() (biliclient.BangumiInfo, error) {
		return pl.client.GetBangumiInfo(epID)
	})
}

func (pl *execPipeline) cheeseInfo(epID int64) (biliclient.CheeseInfo, error) {
	if pl.cache == nil {
		return pl.client.GetCheeseInfo(epID)
	}
	return infocache.GetOrFetch(pl.cache, infocache.Key("cheese_info", epID), infoCacheTTL, func() (biliclient.CheeseInfo, error) {
		return pl.client.GetCheeseInfo(epID)
	})
}

var _ Pipeline = (*execPipeline)(nil)

// Run executes every §4.5 stage in order, stopping at the first error.
func (pl *execPipeline) Run(ctx context.Context, p *progress.DownloadProgress, pauseRequested <-chan struct{}, mutate func(fn func(*progress.DownloadProgress))) error {
	if err := pl.preparer.Prepare(p); err != nil {
		return FailWithContext(p.TaskID, p.EpisodeTitle, err)
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"video", func() error { return pl.downloadStream(ctx, p, pauseRequested, mutate, streamVideo) }},
		{"audio", func() error { return pl.downloadStream(ctx, p, pauseRequested, mutate, streamAudio) }},
		{"merge", func() error { return pl.mergeAndEmbed(ctx, p, mutate) }},
		{"danmaku", func() error { return pl.danmakuStage(p, mutate) }},
		{"subtitle", func() error { return pl.subtitleStage(p, mutate) }},
		{"cover", func() error { return pl.coverStage(p, mutate) }},
		{"nfo", func() error { return pl.nfoStage(p, mutate) }},
		{"json", func() error { return pl.jsonStage(p, mutate) }},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil // restart/delete: not a failure, caller discards the attempt.
		}
		if err := s.run(); err != nil {
			return FailWithContext(p.TaskID, p.EpisodeTitle, fmt.Errorf("%s stage: %w", s.name, err))
		}
	}
	return nil
}

// --- video/audio download (§4.5 steps 1-2) ---

type streamKind struct {
	ext       string
	subtask   func(p *progress.DownloadProgress) (selected, done bool, url string, chunks []progress.MediaChunk)
	markChunk func(p *progress.DownloadProgress, idx int)
	markDone  func(p *progress.DownloadProgress)
	reset     func(p *progress.DownloadProgress)
}

var streamVideo = streamKind{
	ext: ".mp4",
	subtask: func(p *progress.DownloadProgress) (bool, bool, string, []progress.MediaChunk) {
		return p.Video.Selected, p.Video.IsDone(), p.Video.URL, p.Video.Chunks
	},
	markChunk: func(p *progress.DownloadProgress, idx int) { p.Video.Chunks[idx].Completed = true },
	markDone:  func(p *progress.DownloadProgress) { p.Video.Completed = true },
	reset:     func(p *progress.DownloadProgress) { p.ResetVideoStream() },
}

var streamAudio = streamKind{
	ext: ".m4a",
	subtask: func(p *progress.DownloadProgress) (bool, bool, string, []progress.MediaChunk) {
		return p.Audio.Selected, p.Audio.IsDone(), p.Audio.URL, p.Audio.Chunks
	},
	markChunk: func(p *progress.DownloadProgress, idx int) { p.Audio.Chunks[idx].Completed = true },
	markDone:  func(p *progress.DownloadProgress) { p.Audio.Completed = true },
	reset:     func(p *progress.DownloadProgress) { p.ResetAudioStream() },
}

// downloadStream drives one of the video/audio sub-tasks through its chunk
// plan and, on full completion, the MP4 integrity walk (C6) — spec.md §4.5
// steps 1-2. Chunk fan-out has no ordering guarantee; each FetchChunk
// writes a disjoint file offset and reports back through mutate.
func (pl *execPipeline) downloadStream(ctx context.Context, p *progress.DownloadProgress, pauseRequested <-chan struct{}, mutate func(fn func(*progress.DownloadProgress)), kind streamKind) error {
	selected, done, url, chunks := kind.subtask(p)
	if !selected || done {
		return nil
	}

	dir := p.EpisodeDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create episode directory: %w", err)
	}
	final := filepath.Join(dir, p.Filename+kind.ext)
	temp := final + sentinelSuffix

	f, err := os.OpenFile(temp, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file %s: %w", temp, err)
	}
	if err := f.Truncate(int64(lastChunkEnd(chunks) + 1)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to preallocate temp file %s: %w", temp, err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(chunks))
	for i, c := range chunks {
		if c.Completed {
			continue
		}
		wg.Add(1)
		job := ChunkJob{Index: i, Start: c.Start, End: c.End}
		go func(job ChunkJob) {
			defer wg.Done()
			res, err := FetchChunk(ctx, pl.client.HTTP(), url, job, f, pl.chunkSem, pauseRequested, pl.chunkInterval, pl.bytesCounter)
			if err != nil {
				errCh <- err
				return
			}
			if res.Completed {
				idx := res.Index
				mutate(func(pp *progress.DownloadProgress) { kind.markChunk(pp, idx) })
			}
		}(job)
	}
	wg.Wait()
	close(errCh)
	for e := range errCh {
		if e != nil {
			_ = f.Close()
			return e
		}
	}

	_, _, _, latestChunks := kind.subtask(p)
	if !progress.AllComplete(latestChunks) {
		// Paused, restarted, or deleted mid-flight: leave the temp file and
		// chunk marks exactly as they are for the next attempt to resume.
		_ = f.Close()
		return nil
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", temp, err)
	}

	ok, err := IsMP4Complete(temp)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", temp, err)
	}
	if !ok {
		mutate(func(pp *progress.DownloadProgress) { kind.reset(pp) })
		return fmt.Errorf("%s failed integrity check, continue will redownload", filepath.Base(temp))
	}

	if err := os.Rename(temp, final); err != nil {
		return fmt.Errorf("failed to rename %s into place: %w", temp, err)
	}
	mutate(func(pp *progress.DownloadProgress) { kind.markDone(pp) })
	return nil
}

func lastChunkEnd(chunks []progress.MediaChunk) uint64 {
	if len(chunks) == 0 {
		return 0
	}
	return chunks[len(chunks)-1].End
}

// --- merge + chapter/skip embed (§4.5 step 3) ---

func (pl *execPipeline) mergeAndEmbed(ctx context.Context, p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Process.IsDone() {
		return nil
	}

	videoPath := filepath.Join(p.EpisodeDir, p.Filename+".mp4")
	audioPath := filepath.Join(p.EpisodeDir, p.Filename+".m4a")
	videoExists := fileExists(videoPath)
	audioExists := fileExists(audioPath)

	if !videoExists || (p.Process.MergeSelected && !audioExists) {
		mutate(func(pp *progress.DownloadProgress) { pp.Process.Completed = true })
		return nil
	}

	wantMerge := p.Process.MergeSelected && audioExists
	wantEmbed := p.Process.EmbedChapterSelected || p.Process.EmbedSkipSelected
	if !wantMerge && !wantEmbed {
		mutate(func(pp *progress.DownloadProgress) { pp.Process.Completed = true })
		return nil
	}
	if pl.ffmpegBinary == "" {
		return fmt.Errorf("ffmpeg is not available on PATH")
	}

	opts := ffmpeg.MergeOptions{Binary: pl.ffmpegBinary, VideoPath: videoPath, FinalPath: videoPath}
	if wantMerge {
		opts.AudioPath = audioPath
	}
	if wantEmbed {
		segments, err := pl.buildChapterSegments(p)
		if err != nil {
			return fmt.Errorf("failed to build chapter metadata: %w", err)
		}
		metadataPath := filepath.Join(p.EpisodeDir, p.Filename+".FFMETA.ini")
		if err := os.WriteFile(metadataPath, []byte(segments.GenerateMetadata(p.Duration)), 0o644); err != nil {
			return fmt.Errorf("failed to write chapter metadata: %w", err)
		}
		opts.MetadataPath = metadataPath
	}

	if err := ffmpeg.Run(ctx, pl.ffmpegBinary, opts); err != nil {
		return err
	}
	mutate(func(pp *progress.DownloadProgress) { pp.Process.Completed = true })
	return nil
}

// buildChapterSegments composes view points and skip segments into one
// non-overlapping timeline (C8). Skip segments are inserted after view
// points so a community-submitted skip annotation takes priority over the
// platform's own chapter marker wherever the two disagree.
func (pl *execPipeline) buildChapterSegments(p *progress.DownloadProgress) (*ChapterSegments, error) {
	segments := NewChapterSegments()

	if p.Process.EmbedChapterSelected {
		info, err := pl.client.GetPlayerInfo(p.AID, p.CID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch player info: %w", err)
		}
		for _, vp := range info.ViewPoints {
			segments.Insert(ChapterSegment{Title: vp.Title, Start: vp.Start, End: vp.End})
		}
	}
	if p.Process.EmbedSkipSelected {
		skips, err := pl.client.GetSkipSegments(p.BVID, p.CID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch skip segments: %w", err)
		}
		for _, sk := range skips {
			segments.Insert(ChapterSegment{Title: SkipCategoryTitle(sk.Category), Start: sk.Start, End: sk.End})
		}
	}
	return segments, nil
}

// --- danmaku (§4.5 step 4) ---

func (pl *execPipeline) danmakuStage(p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Danmaku.IsDone() {
		return nil
	}

	segments, err := pl.client.GetDanmaku(p.AID, p.CID, p.Duration)
	if err != nil {
		return fmt.Errorf("failed to fetch danmaku: %w", err)
	}
	// GetDanmaku hits the protobuf seg.so endpoint, not the legacy XML
	// comment dump, so the segments are decoded as protobuf here and then
	// fed through the same MarshalXML/RenderASSFromDanmakus writers the
	// XML path uses once it has a []Danmaku.
	comments, err := danmaku.ParseProtobufSegments(segments)
	if err != nil {
		return fmt.Errorf("failed to parse danmaku: %w", err)
	}

	if p.Danmaku.XMLSelected {
		data, err := danmaku.MarshalXML(comments)
		if err != nil {
			return fmt.Errorf("failed to marshal danmaku xml: %w", err)
		}
		if err := os.WriteFile(filepath.Join(p.EpisodeDir, p.Filename+".弹幕.xml"), data, 0o644); err != nil {
			return fmt.Errorf("failed to write danmaku xml: %w", err)
		}
	}
	if p.Danmaku.ASSSelected {
		f, err := os.Create(filepath.Join(p.EpisodeDir, p.Filename+".弹幕.ass"))
		if err != nil {
			return fmt.Errorf("failed to create danmaku ass: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := danmaku.RenderASSFromDanmakus(comments, f, p.EpisodeTitle, canvasConfigFromSettings(pl.cfg.Danmaku)); err != nil {
			return fmt.Errorf("failed to render danmaku ass: %w", err)
		}
	}
	if p.Danmaku.JSONSelected {
		data, err := json.MarshalIndent(comments, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal danmaku json: %w", err)
		}
		if err := os.WriteFile(filepath.Join(p.EpisodeDir, p.Filename+".弹幕.json"), data, 0o644); err != nil {
			return fmt.Errorf("failed to write danmaku json: %w", err)
		}
	}

	mutate(func(pp *progress.DownloadProgress) { pp.Danmaku.Completed = true })
	return nil
}

func canvasConfigFromSettings(cfg config.DanmakuCanvas) danmaku.CanvasConfig {
	c := danmaku.DefaultCanvasConfig()
	c.Width = uint32(cfg.Width)
	c.Height = uint32(cfg.Height)
	c.FontSize = uint32(cfg.FontSize)
	c.Alpha = cfg.Opacity
	c.FloatPercentage = cfg.DisplayArea
	c.DurationSec = cfg.ScrollSpeed
	return c
}

// --- subtitle (§4.5 step 5) ---

func (pl *execPipeline) subtitleStage(p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Subtitle.IsDone() {
		return nil
	}

	info, err := pl.client.GetPlayerInfo(p.AID, p.CID)
	if err != nil {
		return fmt.Errorf("failed to fetch player info for subtitles: %w", err)
	}
	for _, entry := range info.SubtitleList {
		body, err := pl.client.GetSubtitle(entry.SubtitleURL)
		if err != nil {
			return fmt.Errorf("failed to fetch subtitle %s: %w", entry.Lan, err)
		}
		path := filepath.Join(p.EpisodeDir, fmt.Sprintf("%s.%s.srt", p.Filename, entry.Lan))
		if err := os.WriteFile(path, []byte(subtitleToSRT(body)), 0o644); err != nil {
			return fmt.Errorf("failed to write subtitle %s: %w", entry.Lan, err)
		}
	}

	mutate(func(pp *progress.DownloadProgress) { pp.Subtitle.Completed = true })
	return nil
}

func subtitleToSRT(body biliclient.SubtitleBody) string {
	var b strings.Builder
	for i, line := range body.Body {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(line.From), srtTimestamp(line.To), line.Content)
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	total := time.Duration(seconds * float64(time.Second))
	h := total / time.Hour
	total -= h * time.Hour
	m := total / time.Minute
	total -= m * time.Minute
	s := total / time.Second
	total -= s * time.Second
	ms := total / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// --- cover (§4.5 step 6) ---

func (pl *execPipeline) coverStage(p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Cover.IsDone() {
		return nil
	}

	url := p.Cover.URL
	if url == "" {
		var err error
		url, err = pl.resolveCoverURL(p)
		if err != nil {
			return fmt.Errorf("failed to resolve cover url: %w", err)
		}
	}

	data, ext, err := pl.client.GetCoverDataAndExt(url)
	if err != nil {
		return fmt.Errorf("failed to fetch cover: %w", err)
	}
	path := filepath.Join(p.EpisodeDir, fmt.Sprintf("%s.%s", p.Filename, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cover: %w", err)
	}

	mutate(func(pp *progress.DownloadProgress) {
		pp.Cover.URL = url
		pp.Cover.Completed = true
	})
	return nil
}

func (pl *execPipeline) resolveCoverURL(p *progress.DownloadProgress) (string, error) {
	switch p.EpisodeType {
	case progress.EpisodeNormal:
		info, err := pl.normalInfo(p.AID, p.BVID)
		if err != nil {
			return "", err
		}
		return info.Cover, nil
	case progress.EpisodeBangumi:
		info, err := pl.bangumiInfo(p.EpID)
		if err != nil {
			return "", err
		}
		return info.Cover, nil
	case progress.EpisodeCheese:
		info, err := pl.cheeseInfo(p.EpID)
		if err != nil {
			return "", err
		}
		return info.Cover, nil
	default:
		return "", fmt.Errorf("unknown episode type %v", p.EpisodeType)
	}
}

// --- NFO (§4.5 step 7) ---

func (pl *execPipeline) nfoStage(p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Nfo.IsDone() {
		return nil
	}

	var doc []byte
	var err error
	switch p.EpisodeType {
	case progress.EpisodeNormal:
		doc, err = pl.buildMovieNFO(p)
	case progress.EpisodeBangumi:
		doc, err = pl.buildBangumiNFO(p)
	case progress.EpisodeCheese:
		doc, err = pl.buildCheeseNFO(p)
	default:
		err = fmt.Errorf("unknown episode type %v", p.EpisodeType)
	}
	if err != nil {
		return err
	}

	path := filepath.Join(p.EpisodeDir, p.Filename+".nfo")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write nfo: %w", err)
	}

	mutate(func(pp *progress.DownloadProgress) { pp.Nfo.Completed = true })
	return nil
}

func (pl *execPipeline) buildMovieNFO(p *progress.DownloadProgress) ([]byte, error) {
	info, err := pl.normalInfo(p.AID, p.BVID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch normal info: %w", err)
	}
	tags, err := pl.client.GetTags(p.AID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	tagNames := make([]string, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Name)
	}
	staff := make([]nfo.StaffInput, 0, len(info.Staff)+1)
	if info.Owner.Name != "" {
		staff = append(staff, nfo.StaffInput{Name: info.Owner.Name, Title: "UP主"})
	}
	for _, s := range info.Staff {
		staff = append(staff, nfo.StaffInput{Name: s.Name, Title: s.Title, Face: s.Face})
	}

	in := nfo.MovieInput{
		Title:       info.Title,
		Desc:        info.Desc,
		PubTS:       info.PubTS,
		DurationSec: info.Duration,
		Tname:       info.Tname,
		TnameV2:     info.TnameV2,
		Tags:        tagNames,
		Staff:       staff,
	}
	if info.UgcSeason != nil {
		in.HasSet = true
		in.SetName = info.UgcSeason.Title
		in.SetOverview = info.UgcSeason.Intro
	}

	return nfo.Marshal(nfo.BuildMovie(in))
}

func (pl *execPipeline) buildBangumiNFO(p *progress.DownloadProgress) ([]byte, error) {
	info, err := pl.bangumiInfo(p.EpID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bangumi info: %w", err)
	}

	tvshowPath := filepath.Join(filepath.Dir(p.EpisodeDir), "tvshow.nfo")
	if !fileExists(tvshowPath) {
		areas := make([]string, 0, len(info.Areas))
		for _, a := range info.Areas {
			areas = append(areas, a.Name)
		}
		upName := ""
		if info.UpInfo != nil {
			upName = info.UpInfo.Uname
		}
		tvshow, err := nfo.Marshal(nfo.BuildBangumiTvshow(nfo.BangumiTvshowInput{
			SeasonTitle:   info.SeasonTitle,
			Evaluate:      info.Evaluate,
			ShareSubTitle: info.ShareSubTitle,
			TypeField:     info.TypeField,
			Styles:        info.Styles,
			Areas:         areas,
			PubTimeStr:    info.Publish.PubTime,
			IsFinish:      info.Publish.IsFinish,
			UpName:        upName,
		}))
		if err == nil {
			_ = os.WriteFile(tvshowPath, tvshow, 0o644)
		}
	}

	for _, ep := range info.Episodes {
		if ep.CID == p.CID {
			return nfo.Marshal(nfo.BuildEpisodeDetails(nfo.EpisodeInput{
				Title:       pickTitle(ep.ShowTitle, ep.Long, ep.Title),
				Plot:        ep.ShareCopy,
				PremieredTS: ep.PubTS,
				DurationSec: ep.Duration,
				Episode:     p.EpisodeOrder,
			}))
		}
	}
	return nfo.Marshal(nfo.BuildEpisodeDetails(nfo.EpisodeInput{Title: p.EpisodeTitle, Episode: p.EpisodeOrder, DurationSec: int64(p.Duration)}))
}

func (pl *execPipeline) buildCheeseNFO(p *progress.DownloadProgress) ([]byte, error) {
	info, err := pl.cheeseInfo(p.EpID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cheese info: %w", err)
	}

	tvshowPath := filepath.Join(filepath.Dir(p.EpisodeDir), "tvshow.nfo")
	if !fileExists(tvshowPath) {
		upName := ""
		if info.UpInfo != nil {
			upName = info.UpInfo.Uname
		}
		tvshow, err := nfo.Marshal(nfo.BuildCheeseTvshow(nfo.CheeseTvshowInput{
			Title:         info.Title,
			Subtitle:      info.Subtitle,
			ReleaseStatus: info.ReleaseStatus,
			UpName:        upName,
		}))
		if err == nil {
			_ = os.WriteFile(tvshowPath, tvshow, 0o644)
		}
	}

	for _, ep := range info.Episodes {
		if ep.CID == p.CID {
			return nfo.Marshal(nfo.BuildEpisodeDetails(nfo.EpisodeInput{
				Title:       ep.Title,
				Plot:        ep.Subtitle,
				PremieredTS: ep.PubTS,
				DurationSec: ep.Duration,
				Episode:     p.EpisodeOrder,
			}))
		}
	}
	return nfo.Marshal(nfo.BuildEpisodeDetails(nfo.EpisodeInput{Title: p.EpisodeTitle, Episode: p.EpisodeOrder, DurationSec: int64(p.Duration)}))
}

func pickTitle(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// --- JSON metadata sibling (§4.5 step 8) ---

func (pl *execPipeline) jsonStage(p *progress.DownloadProgress, mutate func(fn func(*progress.DownloadProgress))) error {
	if p.Json.IsDone() {
		return nil
	}

	var raw any
	var err error
	switch p.EpisodeType {
	case progress.EpisodeNormal:
		raw, err = pl.normalInfo(p.AID, p.BVID)
	case progress.EpisodeBangumi:
		raw, err = pl.bangumiInfo(p.EpID)
	case progress.EpisodeCheese:
		raw, err = pl.cheeseInfo(p.EpID)
	default:
		err = fmt.Errorf("unknown episode type %v", p.EpisodeType)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch metadata for json sibling: %w", err)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata json: %w", err)
	}
	path := filepath.Join(p.EpisodeDir, p.Filename+"-元数据.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata json: %w", err)
	}

	mutate(func(pp *progress.DownloadProgress) { pp.Json.Completed = true })
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
