package danmaku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeVarint/encodeTag/encodeElem below build a minimal DmSegMobileReply
// payload by hand, mirroring the wire format parseProtobufReply expects, so
// the decoder can be tested without a real network fetch.

func encodeVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func encodeTag(field, wireType int) []byte {
	return encodeVarint(uint64(field<<3 | wireType))
}

func encodeVarintField(field int, v uint64) []byte {
	return append(encodeTag(field, wireVarint), encodeVarint(v)...)
}

func encodeStringField(field int, s string) []byte {
	out := encodeTag(field, wireLenDelim)
	out = append(out, encodeVarint(uint64(len(s)))...)
	return append(out, s...)
}

func encodeElem(progressMs, mode, fontSize, color int, content string) []byte {
	var elem []byte
	elem = append(elem, encodeVarintField(fieldElemProgress, uint64(progressMs))...)
	elem = append(elem, encodeVarintField(fieldElemMode, uint64(mode))...)
	elem = append(elem, encodeVarintField(fieldElemFontSize, uint64(fontSize))...)
	elem = append(elem, encodeVarintField(fieldElemColor, uint64(color))...)
	elem = append(elem, encodeStringField(fieldElemContent, content)...)

	out := encodeTag(fieldReplyElems, wireLenDelim)
	out = append(out, encodeVarint(uint64(len(elem)))...)
	return append(out, elem...)
}

func TestParseProtobufSegmentsDecodesAndSorts(t *testing.T) {
	seg1 := append(encodeElem(12500, 1, 25, 0xffffff, "hello world"),
		encodeElem(3000, 4, 25, 0xff0000, "bottom comment")...)
	seg2 := encodeElem(12600, 1, 25, 0x0000ff, "another float")

	danmakus, err := ParseProtobufSegments([][]byte{seg1, seg2})
	require.NoError(t, err)
	require.Len(t, danmakus, 3)

	assert.Equal(t, "bottom comment", danmakus[0].Content)
	assert.Equal(t, "hello world", danmakus[1].Content)
	assert.Equal(t, "another float", danmakus[2].Content)

	assert.Equal(t, TypeFloat, danmakus[1].Type)
	assert.Equal(t, TypeBottom, danmakus[0].Type)
	assert.Equal(t, uint8(0xff), danmakus[1].R)
	assert.InDelta(t, 12.5, danmakus[1].TimelineSec, 1e-9)
}

func TestParseProtobufSegmentsDefaultsUnknownMode(t *testing.T) {
	seg := encodeElem(1000, 2, 25, 0, "weird mode")

	danmakus, err := ParseProtobufSegments([][]byte{seg})
	require.NoError(t, err)
	require.Len(t, danmakus, 1)
	assert.Equal(t, TypeFloat, danmakus[0].Type)
}

func TestParseProtobufSegmentsEmptyReplyYieldsNoComments(t *testing.T) {
	danmakus, err := ParseProtobufSegments([][]byte{{}})
	require.NoError(t, err)
	assert.Empty(t, danmakus)
}

func TestParseProtobufSegmentsRejectsTruncatedVarint(t *testing.T) {
	_, err := ParseProtobufSegments([][]byte{{0x80}})
	assert.Error(t, err)
}
