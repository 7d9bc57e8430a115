package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUser_AddToPlaylist(t *testing.T) {
	u := &User{}

	for _, id := range []string{"c1", "c2", "c3"} {
		if err := u.AddToPlaylist(PlaylistItem{CourseID: id}); err != nil {
			t.Fatalf("AddToPlaylist(%s) error = %v", id, err)
		}
	}

	if err := u.AddToPlaylist(PlaylistItem{CourseID: "c2"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate add error = %v, want ErrConflict", err)
	}

	want := []string{"c1", "c2", "c3"}
	for i, item := range u.Playlist {
		if item.CourseID != want[i] {
			t.Errorf("Playlist[%d] = %s, want %s", i, item.CourseID, want[i])
		}
	}
}

func TestUser_RemoveFromPlaylist(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		want    []string
		wantErr error
	}{
		{name: "middle keeps order", remove: "c2", want: []string{"c1", "c3"}},
		{name: "head", remove: "c1", want: []string{"c2", "c3"}},
		{name: "missing", remove: "c9", want: []string{"c1", "c2", "c3"}, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Playlist: []PlaylistItem{{CourseID: "c1"}, {CourseID: "c2"}, {CourseID: "c3"}}}

			err := u.RemoveFromPlaylist(tt.remove)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RemoveFromPlaylist() error = %v, want %v", err, tt.wantErr)
			}
			if len(u.Playlist) != len(tt.want) {
				t.Fatalf("len(Playlist) = %d, want %d", len(u.Playlist), len(tt.want))
			}
			for i, item := range u.Playlist {
				if item.CourseID != tt.want[i] {
					t.Errorf("Playlist[%d] = %s, want %s", i, item.CourseID, tt.want[i])
				}
			}
		})
	}
}

func TestUser_ToggleRole(t *testing.T) {
	u := &User{Role: RoleUser}
	u.ToggleRole()
	if !u.IsAdmin() {
		t.Errorf("Role = %s, want admin", u.Role)
	}
	u.ToggleRole()
	if u.Role != RoleUser {
		t.Errorf("Role = %s, want user", u.Role)
	}
}

func TestPayment_WithinRefundWindow(t *testing.T) {
	now := time.Now().UTC()
	window := 7 * 24 * time.Hour

	tests := []struct {
		name      string
		createdAt time.Time
		want      bool
	}{
		{name: "just paid", createdAt: now.Add(-time.Hour), want: true},
		{name: "one second before the window closes", createdAt: now.Add(-window + time.Second), want: true},
		{name: "exactly at the window", createdAt: now.Add(-window), want: false},
		{name: "long ago", createdAt: now.AddDate(0, -1, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Payment{CreatedAt: tt.createdAt}
			if got := p.WithinRefundWindow(now, window); got != tt.want {
				t.Errorf("WithinRefundWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourse_Validate(t *testing.T) {
	valid := Course{
		Title:       "Go in Practice",
		Description: "A long enough description for the catalog",
		Category:    "Web Development",
		CreatedBy:   "Admin",
	}

	tests := []struct {
		name    string
		mutate  func(c *Course)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Course) {}},
		{name: "short title", mutate: func(c *Course) { c.Title = "Go" }, wantErr: true},
		{name: "long title", mutate: func(c *Course) { c.Title = string(make([]byte, 81)) }, wantErr: true},
		{name: "short description", mutate: func(c *Course) { c.Description = "too short" }, wantErr: true},
		{name: "missing category", mutate: func(c *Course) { c.Category = "" }, wantErr: true},
		{name: "missing creator", mutate: func(c *Course) { c.CreatedBy = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}
