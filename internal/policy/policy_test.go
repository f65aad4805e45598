package policy

import (
	"testing"

	"github.com/iliyamo/marketplace-api/internal/repository"
)

func TestCanAccessChat(t *testing.T) {
	chat := &repository.Chat{ID: 1, User1ID: 3, User2ID: 7}

	tests := []struct {
		name string
		id   Identity
		chat *repository.Chat
		want bool
	}{
		{"first participant", Identity{ID: 3}, chat, true},
		{"second participant", Identity{ID: 7}, chat, true},
		{"outsider", Identity{ID: 9}, chat, false},
		{"superuser is not a participant", Identity{ID: 9, IsSuper: true}, chat, false},
		{"nil chat", Identity{ID: 3}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessChat(tt.id, tt.chat); got != tt.want {
				t.Errorf("CanAccessChat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanModifyProduct(t *testing.T) {
	p := &repository.Product{ID: 1, SellerID: 5}

	tests := []struct {
		name string
		id   Identity
		p    *repository.Product
		want bool
	}{
		{"owner", Identity{ID: 5}, p, true},
		{"other user", Identity{ID: 6}, p, false},
		{"superuser", Identity{ID: 6, IsSuper: true}, p, true},
		{"nil product", Identity{ID: 5}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModifyProduct(tt.id, tt.p); got != tt.want {
				t.Errorf("CanModifyProduct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAdminister(t *testing.T) {
	if CanAdminister(Identity{ID: 1}) {
		t.Error("regular user should not administer")
	}
	if !CanAdminister(Identity{ID: 1, IsSuper: true}) {
		t.Error("superuser should administer")
	}
}
