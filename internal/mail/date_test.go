package mail

import (
	"testing"
	"time"
)

func TestParseMessageDate(t *testing.T) {
	want := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"Tue, 14 May 2024 09:30:00 +0000", want, false},
		{"Tue, 14 May 2024 09:30:00 +0000 (UTC)", want, false},
		{"Tue, 14 May 2024 02:30:00 -0700 (PDT)", want, false},
		{"14 May 2024 11:30:00 +0200", want, false},
		{"  Tue, 14 May 2024 09:30:00 GMT  ", want, false},
		{"2024-05-14T09:30:00Z", want, false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMessageDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessageDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseMessageDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
