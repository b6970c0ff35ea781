package danmaku

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<i>
<d p="12.5,1,25,16777215,1620000000,0,abc,1,0">hello world</d>
<d p="3.0,4,25,16711680,1620000001,0,def,2,0">bottom comment</d>
<d p="12.6,1,25,255,1620000002,0,ghi,3,0">another float</d>
</i>`

func TestParseXMLSortsByTimeline(t *testing.T) {
	danmakus, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)
	require.Len(t, danmakus, 3)

	assert.Equal(t, "bottom comment", danmakus[0].Content)
	assert.Equal(t, "hello world", danmakus[1].Content)
	assert.Equal(t, "another float", danmakus[2].Content)

	assert.Equal(t, TypeBottom, danmakus[0].Type)
	assert.Equal(t, uint8(0xff), danmakus[0].R)
	assert.Equal(t, uint8(0), danmakus[0].G)
	assert.Equal(t, uint8(0), danmakus[0].B)
}

func TestParseXMLRejectsMissingFields(t *testing.T) {
	_, err := ParseXML([]byte(`<i><d p="1.0,1">broken</d></i>`))
	assert.Error(t, err)
}

func TestRenderASSWritesHeaderAndDialogue(t *testing.T) {
	var buf bytes.Buffer
	err := RenderASS([]byte(sampleXML), &buf, "test track", DefaultCanvasConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[Script Info]")
	assert.Contains(t, out, "[V4+ Styles]")
	assert.Contains(t, out, "[Events]")
	assert.Contains(t, out, "Dialogue: 2,")
}

func TestLaneDemotesNonFloatTypes(t *testing.T) {
	canvas := NewCanvas(DefaultCanvasConfig())
	d := Danmaku{TimelineSec: 1, Content: "x", Type: TypeBottom, FontSize: 25}
	drawable := canvas.Draw(d)
	require.NotNil(t, drawable)
	assert.Equal(t, TypeFloat, drawable.Danmaku.Type)
}

func TestCanvasDropsNegativeTimeline(t *testing.T) {
	cfg := DefaultCanvasConfig()
	cfg.TimeOffsetSec = -100
	canvas := NewCanvas(cfg)
	drawable := canvas.Draw(Danmaku{TimelineSec: 1, Content: "x", Type: TypeFloat, FontSize: 25})
	assert.Nil(t, drawable)
}
