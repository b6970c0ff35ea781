package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilidl/bilidl/pkg/progress"
)

func sampleFmtParams() progress.FmtParams {
	return progress.FmtParams{
		AID:             12345,
		BVID:            "BV1xx411c7mD",
		CID:             999,
		EpID:            0,
		CollectionTitle: "Some Series",
		EpisodeTitle:    "Episode One",
		EpisodeOrder:    3,
		PartTitle:       "Part A",
		PartOrder:       1,
		UpName:          "uploader/name",
		UpUID:           42,
		PubTS:           1700000000,
	}
}

func TestResolveTemplateStringAndNumberFields(t *testing.T) {
	p := sampleFmtParams()
	got := ResolveTemplate("{collection_title}/{episode_order:03d} - {episode_title}", p)
	assert.Equal(t, "Some Series/003 - Episode One", got)
}

func TestResolveTemplateUnknownPlaceholderLeftVerbatim(t *testing.T) {
	p := sampleFmtParams()
	got := ResolveTemplate("{not_a_field}", p)
	assert.Equal(t, "{not_a_field}", got)
}

func TestResolveTemplateStrftime(t *testing.T) {
	p := sampleFmtParams()
	got := ResolveTemplate("%Y-%m-%d", p)
	assert.Equal(t, "2023-11-14", got)
}

func TestSanitizePathSegmentReplacesUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "a-b -c'd", SanitizePathSegment(`a/b:c"d`))
}

func TestSanitizePathSegmentEmptyFallsBackToUntitled(t *testing.T) {
	assert.Equal(t, "untitled", SanitizePathSegment("***"))
}

func TestValidateTemplateRejectsUnbalancedBraces(t *testing.T) {
	err := ValidateTemplate("{episode_title")
	assert.Error(t, err)
}

func TestValidateTemplateRejectsUnknownPlaceholder(t *testing.T) {
	err := ValidateTemplate("{not_a_real_field}")
	assert.Error(t, err)
}

func TestValidateTemplateAcceptsKnownPlaceholders(t *testing.T) {
	err := ValidateTemplate("{collection_title}/{episode_order:02d}")
	assert.NoError(t, err)
}
