package downloader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/pkg/progress"
)

var (
	bvidPattern    = regexp.MustCompile(`BV[0-9A-Za-z]{10}`)
	aidPattern     = regexp.MustCompile(`[aA][vV](\d+)`)
	seasonPattern  = regexp.MustCompile(`ss(\d+)`)
	episodePattern = regexp.MustCompile(`ep(\d+)`)
)

// ResolveInput turns a pasted URL, bare BV/av id, or season id into the
// CreateParams for every part the manager should start a task for —
// one per page for a normal video, one per episode for a bangumi or
// cheese season. Routing is by URL shape: a normal video is identified
// by a BV/av id, a season by an ss id, with bangumi vs. cheese told
// apart by the "cheese" path segment real bilibili season URLs carry.
// The original Rust client never parses raw user input itself — its
// Tauri commands take ids the frontend has already extracted — so this
// parsing is new, in the same spirit as the rest of the CLI surface.
func ResolveInput(client *biliclient.Client, raw string) ([]progress.CreateParams, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty input")
	}

	if m := seasonPattern.FindStringSubmatch(raw); m != nil {
		seasonID, _ := strconv.ParseInt(m[1], 10, 64)
		if strings.Contains(strings.ToLower(raw), "cheese") {
			return resolveCheese(client, seasonID)
		}
		return resolveBangumi(client, seasonID)
	}

	if bv := bvidPattern.FindString(raw); bv != "" {
		return resolveNormal(client, 0, bv)
	}
	if m := aidPattern.FindStringSubmatch(raw); m != nil {
		aid, _ := strconv.ParseInt(m[1], 10, 64)
		return resolveNormal(client, aid, "")
	}
	if m := episodePattern.FindStringSubmatch(raw); m != nil {
		return nil, fmt.Errorf("ep%s is a single episode id; pass the season's ss<id> URL instead", m[1])
	}

	return nil, fmt.Errorf("could not recognize %q as a video, bangumi, or cheese link", raw)
}

func resolveNormal(client *biliclient.Client, aid int64, bvid string) ([]progress.CreateParams, error) {
	info, err := client.GetNormalInfo(aid, bvid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve video: %w", err)
	}

	multiPart := len(info.Pages) > 1
	out := make([]progress.CreateParams, 0, len(info.Pages))
	for _, page := range info.Pages {
		out = append(out, progress.CreateParams{
			EpisodeType:     progress.EpisodeNormal,
			AID:             info.AID,
			BVID:            info.BVID,
			CID:             page.CID,
			Duration:        uint64(info.Duration),
			PubTS:           info.PubTS,
			CollectionTitle: info.Title,
			EpisodeTitle:    info.Title,
			PartTitle:       page.Part,
			PartOrder:       page.Page,
			UpName:          info.Owner.Name,
			UpUID:           info.Owner.UID,
			MultiPart:       multiPart,
		})
	}
	return out, nil
}

func resolveBangumi(client *biliclient.Client, seasonID int64) ([]progress.CreateParams, error) {
	info, err := client.GetBangumiInfo(seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bangumi season: %w", err)
	}

	upName := ""
	if info.UpInfo != nil {
		upName = info.UpInfo.Uname
	}

	multiPart := len(info.Episodes) > 1
	out := make([]progress.CreateParams, 0, len(info.Episodes))
	for i, ep := range info.Episodes {
		title := ep.ShowTitle
		if title == "" {
			title = ep.Title
		}
		out = append(out, progress.CreateParams{
			EpisodeType:     progress.EpisodeBangumi,
			AID:             ep.AID,
			CID:             ep.CID,
			EpID:            ep.EpID,
			Duration:        uint64(ep.Duration),
			PubTS:           ep.PubTS,
			CollectionTitle: info.SeasonTitle,
			EpisodeTitle:    title,
			EpisodeOrder:    int64(i + 1),
			UpName:          upName,
			MultiPart:       multiPart,
		})
	}
	return out, nil
}

func resolveCheese(client *biliclient.Client, seasonID int64) ([]progress.CreateParams, error) {
	info, err := client.GetCheeseInfo(seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cheese season: %w", err)
	}

	upName := ""
	if info.UpInfo != nil {
		upName = info.UpInfo.Uname
	}

	multiPart := len(info.Episodes) > 1
	out := make([]progress.CreateParams, 0, len(info.Episodes))
	for _, ep := range info.Episodes {
		out = append(out, progress.CreateParams{
			EpisodeType:     progress.EpisodeCheese,
			AID:             ep.AID,
			CID:             ep.CID,
			EpID:            ep.EpID,
			Duration:        uint64(ep.Duration),
			PubTS:           ep.PubTS,
			CollectionTitle: info.Title,
			EpisodeTitle:    ep.Title,
			EpisodeOrder:    ep.Index,
			UpName:          upName,
			MultiPart:       multiPart,
		})
	}
	return out, nil
}
