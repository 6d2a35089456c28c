package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_SingleItems(t *testing.T) {
	tests := []struct {
		url  string
		want Tag
	}{
		{"https://youtube.com/watch?v=abc12345678", YouTube},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", YouTube},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", YouTube},
		{"youtube.com/shorts/abcDEF_123", YouTube},
		{"https://youtu.be/dQw4w9WgXcQ", YouTube},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", YouTube},
		{"https://twitter.com/jack/status/20", Twitter},
		{"https://x.com/someone/status/1790000000000000000?s=20", Twitter},
		{"https://x.com/someone/status/1790000000000000000/video/1", Twitter},
		{"https://www.instagram.com/p/C1a2B3c4D5e/", Instagram},
		{"https://instagram.com/reel/C1a2B3c4D5e?igsh=abc", Instagram},
		{"https://www.facebook.com/watch?v=123456789", Facebook},
		{"https://www.facebook.com/somepage/videos/987654321/", Facebook},
		{"https://facebook.com/reel/111222333", Facebook},
		{"https://www.tiktok.com/@user.name/video/7234567890123456789", TikTok},
		{"https://www.tiktok.com/@user/video/7234567890123456789?lang=en", TikTok},
		{"https://www.dailymotion.com/video/x8abcd1", Dailymotion},
		{"https://www.pinterest.com/pin/123456789012345678/", Pinterest},
		{"https://de.pinterest.com/pin/123456789012345678/sent/?invite_code=x", Pinterest},
		{"https://pin.it/4AbCdEf", Pinterest},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", Spotify},
		{"https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC?si=x", Spotify},
		{"https://open.spotify.com/episode/0Q86acNRm6V9GYx55SXKwf", Spotify},
		{"https://www.terabox.com/s/1AbC_dEf", Terabox},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			tag, check := Classify(tt.url)
			assert.Equal(t, tt.want, tag)
			assert.False(t, check.IsCollection)
		})
	}
}

func TestMatch_Unsupported(t *testing.T) {
	tests := []string{
		"https://example.com/not-a-platform",
		"https://twitter.com/jack",
		"https://x.com/home",
		"https://www.instagram.com/someuser/",
		"https://vimeo.com/123456",
		"",
		"   ",
		"http://[::1",
		"https://notyoutube.com/watch?v=abc12345678",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, Unsupported, Match(raw))
		})
	}
}

func TestDetectCollection(t *testing.T) {
	tests := []struct {
		url      string
		wantHint string
	}{
		{"https://youtube.com/playlist?list=XYZ", "YouTube"},
		{"https://www.youtube.com/watch?list=PL123&index=2", "YouTube"},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", "Spotify"},
		{"https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", "Spotify"},
		{"https://www.pinterest.com/someone/recipes/", "Pinterest"},
		{"https://www.dailymotion.com/playlist/x6hynp", "Dailymotion"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			check := DetectCollection(tt.url)
			assert.True(t, check.IsCollection)
			assert.Equal(t, tt.wantHint, check.PlatformHint)
		})
	}
}

func TestClassify_PlaylistIsCollectionEvenWhenUnsupportedShape(t *testing.T) {
	tag, check := Classify("https://youtube.com/playlist?list=XYZ")
	assert.Equal(t, Unsupported, tag)
	assert.True(t, check.IsCollection)
	assert.Equal(t, "YouTube", check.PlatformHint)
}

func TestDetectCollection_ListParamOnOtherHosts(t *testing.T) {
	assert.False(t, DetectCollection("https://example.com/page?list=1").IsCollection)
}

func TestDetectCollection_RequiresPlatformHost(t *testing.T) {
	tests := []string{
		"https://example.com/?u=open.spotify.com/album/x",
		"https://example.com/redirect/spotify.com/playlist/abc",
		"https://notpinterest.com/board/x",
		"https://pinterest.com.evil.example/someone/recipes/",
		"https://example.com/?next=dailymotion.com/playlist/x6hynp",
		"https://notdailymotion.com/playlist/x6hynp",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			tag, check := Classify(raw)
			assert.Equal(t, Unsupported, tag)
			assert.False(t, check.IsCollection)
			assert.Empty(t, check.PlatformHint)
		})
	}
}

func TestDetectCollection_PinterestCountrySubdomain(t *testing.T) {
	check := DetectCollection("https://uk.pinterest.com/someone/recipes/")
	assert.True(t, check.IsCollection)
	assert.Equal(t, "Pinterest", check.PlatformHint)
}

func TestClassify_Deterministic(t *testing.T) {
	raw := "https://www.tiktok.com/@user/video/7234567890123456789"
	first, firstCheck := Classify(raw)
	for i := 0; i < 10; i++ {
		tag, check := Classify(raw)
		assert.Equal(t, first, tag)
		assert.Equal(t, firstCheck, check)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://youtube.com/watch?v=abc12345678", false},
		{"http://example.com", false},
		{"  https://example.com/x  ", false},
		{"", true},
		{"not a url", true},
		{"youtube.com/watch?v=abc", true},
		{"ftp://example.com/file", true},
		{"https://", true},
		{"javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ValidateURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTagHelpers(t *testing.T) {
	assert.True(t, YouTube.Supported())
	assert.False(t, Unsupported.Supported())
	assert.Equal(t, "Twitter/X", Twitter.DisplayName())
	assert.Len(t, All(), 9)
}
