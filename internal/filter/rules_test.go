package filter

import (
	"testing"

	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/glefebvre/iptvplayer/internal/models"
)

func TestRules_AddPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{
			name:    "Valid simple pattern",
			pattern: "Movies",
			wantErr: false,
		},
		{
			name:    "Valid complex pattern",
			pattern: "^(Movies|TV Shows).*HD$",
			wantErr: false,
		},
		{
			name:    "Invalid pattern - unclosed group",
			pattern: "^(Movies",
			wantErr: true,
		},
		{
			name:    "Invalid pattern - bad escape",
			pattern: "\\k",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewRules().Add(AttrName, []string{tt.pattern}, nil); (err != nil) != tt.wantErr {
				t.Errorf("Add() include error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := NewRules().Add(AttrGroupTitle, nil, []string{tt.pattern}); (err != nil) != tt.wantErr {
				t.Errorf("Add() exclude error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRules_Matches(t *testing.T) {
	tests := []struct {
		name            string
		includePatterns []string
		excludePatterns []string
		attribute       string
		value           string
		want            bool
	}{
		{
			name:            "No filters - allow all",
			includePatterns: []string{},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
		{
			name:            "Include pattern matches",
			includePatterns: []string{"Movies"},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
		{
			name:            "Include pattern doesn't match",
			includePatterns: []string{"^TV Shows"},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            false,
		},
		{
			name:            "Exclude pattern matches",
			includePatterns: []string{},
			excludePatterns: []string{"XXX"},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies XXX",
			want:            false,
		},
		{
			name:            "Exclude pattern doesn't match",
			includePatterns: []string{},
			excludePatterns: []string{"XXX"},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
		{
			name:            "Include and exclude - include matches, exclude doesn't",
			includePatterns: []string{"Movies"},
			excludePatterns: []string{"XXX"},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
		{
			name:            "Include and exclude - both match (exclude wins)",
			includePatterns: []string{"Movies"},
			excludePatterns: []string{"XXX"},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies XXX",
			want:            false,
		},
		{
			name:            "Multiple include patterns - one matches",
			includePatterns: []string{"^TV Shows", "Movies"},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
		{
			name:            "Multiple exclude patterns - one matches",
			includePatterns: []string{},
			excludePatterns: []string{"XXX", "Adult"},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies Adult",
			want:            false,
		},
		{
			name:            "Case sensitive matching",
			includePatterns: []string{"movies"},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            false,
		},
		{
			name:            "Case insensitive pattern",
			includePatterns: []string{"(?i)movies"},
			excludePatterns: []string{},
			attribute:       AttrGroupTitle,
			value:           "VOD | Movies HD",
			want:            true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRules()
			if err := r.Add(tt.attribute, tt.includePatterns, tt.excludePatterns); err != nil {
				t.Fatalf("Failed to add rule: %v", err)
			}

			got := r.Matches(tt.attribute, tt.value)
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRules_Allow(t *testing.T) {
	tests := []struct {
		name              string
		groupTitleInclude []string
		groupTitleExclude []string
		nameInclude       []string
		nameExclude       []string
		groupTitle        string
		itemName          string
		want              bool
	}{
		{
			name:       "No rules - allow all",
			groupTitle: "Movies HD",
			itemName:   "The Matrix",
			want:       true,
		},
		{
			name:              "Group title rule matches",
			groupTitleInclude: []string{"^Movies"},
			groupTitle:        "Movies HD",
			itemName:          "The Matrix",
			want:              true,
		},
		{
			name:              "Group title rule doesn't match",
			groupTitleInclude: []string{"^TV Shows"},
			groupTitle:        "Movies HD",
			itemName:          "The Matrix",
			want:              false,
		},
		{
			name:        "Name rule matches",
			nameInclude: []string{"Matrix"},
			groupTitle:  "Movies HD",
			itemName:    "The Matrix",
			want:        true,
		},
		{
			name:              "Group matches but name excluded",
			groupTitleInclude: []string{"^Movies"},
			nameExclude:       []string{"Trailer"},
			groupTitle:        "Movies HD",
			itemName:          "The Matrix Trailer",
			want:              false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRules()
			if err := r.Add(AttrGroupTitle, tt.groupTitleInclude, tt.groupTitleExclude); err != nil {
				t.Fatalf("Failed to add group_title rule: %v", err)
			}
			if err := r.Add(AttrName, tt.nameInclude, tt.nameExclude); err != nil {
				t.Fatalf("Failed to add name rule: %v", err)
			}

			if got := r.Allow(tt.groupTitle, tt.itemName); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	cfg := config.FilterConfig{
		GroupTitle: config.FilterDef{ExcludePatterns: []string{"(?i)adult"}},
		Name:       config.FilterDef{IncludePatterns: []string{"HD$"}},
	}

	r, err := LoadRules(cfg)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("Expected 2 rules, got %d", r.Count())
	}
	if r.Allow("Adult", "Channel HD") {
		t.Error("Expected adult group to be excluded")
	}
	if !r.Allow("News", "Channel HD") {
		t.Error("Expected News / Channel HD to be allowed")
	}

	cfg.Name.IncludePatterns = []string{"(broken"}
	if _, err := LoadRules(cfg); err == nil {
		t.Error("Expected an error for an invalid pattern")
	}
}

func TestRules_NilAllowsAll(t *testing.T) {
	var r *Rules
	if !r.Allow("anything", "at all") {
		t.Error("nil rules should allow everything")
	}
	if r.Count() != 0 {
		t.Errorf("Expected 0 rules, got %d", r.Count())
	}
}

func TestKeep(t *testing.T) {
	channels := []models.LiveChannel{
		{ID: "1", Name: "CNN HD", Category: models.Ptr("News")},
		{ID: "2", Name: "Adult One", Category: models.Ptr("XXX")},
		{ID: "3", Name: "BBC", Category: models.Ptr("News")},
	}

	r := NewRules()
	if err := r.Add(AttrGroupTitle, nil, []string{"XXX"}); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	kept := Keep(channels, r)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(kept))
	}
	if kept[0].ID != "1" || kept[1].ID != "3" {
		t.Errorf("Unexpected channels kept: %+v", kept)
	}
	if len(channels) != 3 {
		t.Error("input must not be modified")
	}
}

func BenchmarkMatches(b *testing.B) {
	r := NewRules()
	r.Add(AttrGroupTitle, []string{"^Movies.*HD$"}, []string{"XXX", "Adult"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Matches(AttrGroupTitle, "Movies Action HD")
	}
}
