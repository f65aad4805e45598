// Package storage writes uploaded avatars and product images to local
// disk. Files for an entity live under a folder keyed by "{id}_{slug}" so
// everything belonging to one user or product can be removed in one call.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/marketplace-api/internal/utils"
)

// Store is a local-disk file store. Root is the directory served under
// the /storage URL prefix; BaseURL (optional) is prepended to returned
// paths so clients receive absolute URLs.
type Store struct {
	Root    string
	BaseURL string
}

func New(root, baseURL string) *Store {
	return &Store{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// entityFolder builds "user_photos/42_jane-doe" style relative folders.
func entityFolder(kind string, id uint64, name string) string {
	return path.Join(kind, fmt.Sprintf("%d_%s", id, utils.Slug(name)))
}

// Save writes one uploaded file into the entity folder under a
// uuid-prefixed name (original names collide and may not be trusted) and
// returns the public URL path.
func (s *Store) Save(kind string, id uint64, name, filename string, src io.Reader) (string, error) {
	rel := entityFolder(kind, id, name)
	dir := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stored := uuid.NewString() + "_" + sanitizeFilename(filename)
	dst, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return s.BaseURL + "/storage/" + path.Join(rel, stored), nil
}

// SaveUserPhoto stores an avatar under user_photos/{id}_{slug(name)}.
func (s *Store) SaveUserPhoto(userID uint64, userName, filename string, src io.Reader) (string, error) {
	return s.Save("user_photos", userID, userName, filename, src)
}

// SaveProductImage stores one listing image under
// product_images/{id}_{slug(name)}.
func (s *Store) SaveProductImage(productID uint64, productName, filename string, src io.Reader) (string, error) {
	return s.Save("product_images", productID, productName, filename, src)
}

// Remove deletes a single stored file by its public URL path. Missing
// files are not an error; deletion is best-effort by contract.
func (s *Store) Remove(urlPath string) {
	rel, ok := s.relFromURL(urlPath)
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
}

// RemoveEntity deletes the whole folder of an entity, best-effort.
func (s *Store) RemoveEntity(kind string, id uint64, name string) {
	_ = os.RemoveAll(filepath.Join(s.Root, filepath.FromSlash(entityFolder(kind, id, name))))
}

// relFromURL turns "/storage/user_photos/..." (with or without BaseURL)
// back into a root-relative path, rejecting anything that escapes Root.
func (s *Store) relFromURL(urlPath string) (string, bool) {
	p := strings.TrimPrefix(urlPath, s.BaseURL)
	p = strings.TrimPrefix(p, "/storage/")
	p = path.Clean(p)
	if p == "" || p == "." || strings.HasPrefix(p, "..") || path.IsAbs(p) {
		return "", false
	}
	return p, true
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	return name
}
