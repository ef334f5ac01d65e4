package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/orientation"
)

func TestOrientationChecklist_VideoPositions(t *testing.T) {
	tests := []struct {
		name   string
		videos []backend.Video
		want   []string
	}{
		{
			name:   "two videos",
			videos: []backend.Video{{Title: "Safety", URL: "/v/1"}, {Title: "Pickup", URL: "/v/2"}},
			want:   []string{"Video 1 of 2", "Video 2 of 2"},
		},
		{
			name:   "single video",
			videos: []backend.Video{{Title: "Welcome", URL: "/v/1"}},
			want:   []string{"Video 1 of 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := &orientation.View{
				Step:    orientation.StepVideos,
				Content: &backend.OrientationContent{Videos: tt.videos},
			}
			var buf bytes.Buffer
			if err := OrientationChecklist(view, false).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(html, w) {
					t.Errorf("missing %q in %s", w, html)
				}
			}
			if strings.Contains(html, "of "+itoa(len(tt.videos)+1)) {
				t.Errorf("unexpected total in %s", html)
			}
			if !strings.Contains(html, `name="videosWatched" value="`+itoa(len(tt.videos))+`"`) {
				t.Errorf("videosWatched input missing in %s", html)
			}
		})
	}
}
