package downloader

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/pkg/progress"
)

func lengthServer(t *testing.T, length string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", length)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestPickStreamPrefersQualityThenCodec(t *testing.T) {
	hi := lengthServer(t, "2000")
	defer hi.Close()
	lo := lengthServer(t, "1000")
	defer lo.Close()

	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	p := NewPreparer(client, &config.Downloads{
		VideoQualityPriority: []int64{120, 80},
		CodecTypePriority:    []string{"hevc", "avc"},
	})

	candidates := []biliclient.StreamCandidate{
		{QualityID: 80, Codec: "avc", URLs: []string{lo.URL}},
		{QualityID: 120, Codec: "avc", URLs: []string{hi.URL}},
	}

	winner, length, err := p.pickStream(candidates, p.cfg.VideoQualityPriority, p.cfg.CodecTypePriority)
	require.NoError(t, err)
	assert.EqualValues(t, 120, winner.candidate.QualityID)
	assert.EqualValues(t, 2000, length)
}

func TestPickStreamDropsURLsWithoutLength(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no Content-Length
	}))
	defer bad.Close()
	good := lengthServer(t, "500")
	defer good.Close()

	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	p := NewPreparer(client, &config.Downloads{})

	candidates := []biliclient.StreamCandidate{
		{QualityID: 64, Codec: "avc", URLs: []string{bad.URL, good.URL}},
	}

	winner, length, err := p.pickStream(candidates, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, good.URL, winner.url)
	assert.EqualValues(t, 500, length)
}

func TestPickStreamErrorsOnEmptyCandidates(t *testing.T) {
	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	p := NewPreparer(client, &config.Downloads{})

	_, _, err = p.pickStream(nil, nil, nil)
	assert.Error(t, err)
}

func TestPrepareMarksAudioCompletedWhenAbsent(t *testing.T) {
	progressObj := &progress.DownloadProgress{
		EpisodeType: progress.EpisodeCheese,
		Audio:       progress.AudioTask{Selected: true},
	}
	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	p := NewPreparer(client, &config.Downloads{})

	p.prepareAudio(progressObj, nil)
	assert.True(t, progressObj.Audio.Completed)
}
