package biliclient

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// mixinKeyEncTab permutes the concatenated img+sub keys into the 32-byte
// mixin key used for WBI signing. Values are fixed by the platform's
// client-side JS and do not change per-request — grounded on
// original_source/src-tauri/src/wbi.rs's MIXIN_KEY_ENC_TAB.
var mixinKeyEncTab = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35, 27, 43, 5, 49, 33, 9, 42, 19, 29,
	28, 14, 39, 12, 38, 41, 13, 37, 48, 7, 16, 24, 55, 40, 61, 26, 17, 0, 1, 60, 51, 30, 4, 22, 25,
	54, 21, 56, 59, 6, 63, 57, 62, 11, 36, 20, 34, 44, 52,
}

type wbiKeys struct {
	imgKey string
	subKey string
}

// navRespData mirrors the subset of the nav endpoint's payload WBI needs.
type navRespData struct {
	WbiImg struct {
		ImgURL string `json:"img_url"`
		SubURL string `json:"sub_url"`
	} `json:"wbi_img"`
}

// wbiKeys fetches the current rotating img/sub keys from the nav endpoint,
// grounded on wbi.rs's get_wbi_keys.
func (c *Client) wbiKeys() (wbiKeys, error) {
	var envelope Envelope[navRespData]
	resp, err := c.http.R().
		SetHeader("User-Agent", userAgent).
		SetHeader("Referer", referer).
		SetResult(&envelope).
		Get("https://api.bilibili.com/x/web-interface/nav")
	if err != nil {
		return wbiKeys{}, fmt.Errorf("failed to fetch wbi keys: %w", err)
	}
	if resp.StatusCode() != 200 {
		return wbiKeys{}, fmt.Errorf("unexpected status fetching wbi keys: %d", resp.StatusCode())
	}

	imgFile := takeFilename(envelope.Data.WbiImg.ImgURL)
	subFile := takeFilename(envelope.Data.WbiImg.SubURL)
	if imgFile == "" || subFile == "" {
		return wbiKeys{}, fmt.Errorf("failed to extract wbi key filenames from nav response")
	}
	return wbiKeys{imgKey: imgFile, subKey: subFile}, nil
}

func takeFilename(rawURL string) string {
	slash := strings.LastIndex(rawURL, "/")
	if slash < 0 {
		return ""
	}
	name := rawURL[slash+1:]
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name
	}
	return name[:dot]
}

func mixinKey(orig string) string {
	var b strings.Builder
	for i := 0; i < 32 && i < len(mixinKeyEncTab); i++ {
		idx := mixinKeyEncTab[i]
		if idx < len(orig) {
			b.WriteByte(orig[idx])
		}
	}
	return b.String()
}

// Sign attaches `wts` and `w_rid` to params per the WBI signing scheme:
// sort params, URL-encode+concatenate, append the mixin key, MD5, and set
// as `w_rid` — grounded on wbi.rs's wbi().
func (c *Client) Sign(params url.Values) (url.Values, error) {
	keys, err := c.wbiKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to get wbi keys: %w", err)
	}
	mixin := mixinKey(keys.imgKey + keys.subKey)

	signed := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}
	signed.Set("wts", strconv.FormatInt(time.Now().Unix(), 10))

	keysSorted := make([]string, 0, len(signed))
	for k := range signed {
		keysSorted = append(keysSorted, k)
	}
	sort.Strings(keysSorted)

	var query strings.Builder
	for i, k := range keysSorted {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(wbiEncode(k))
		query.WriteByte('=')
		query.WriteString(wbiEncode(signed.Get(k)))
	}

	sum := md5.Sum([]byte(query.String() + mixin))
	signed.Set("w_rid", hex.EncodeToString(sum[:]))
	return signed, nil
}

// wbiEncode mirrors wbi.rs's get_url_encoded: percent-encode everything
// except unreserved characters, and drop "!'()*" entirely rather than
// encoding them (the platform's signing algorithm is sensitive to this).
func wbiEncode(s string) string {
	const stripped = "!'()*"
	var b strings.Builder
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '-' || r == '_' || r == '.' || r == '~':
			b.WriteRune(r)
		case strings.ContainsRune(stripped, r):
			// dropped
		default:
			for _, by := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", by)
			}
		}
	}
	return b.String()
}
