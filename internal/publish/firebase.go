package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/ironsheep/logistics-bot/internal/materials"
)

// Realtime Database paths read by the dashboard.
const (
	pathLocation   = "currentLocation"
	pathMaterials  = "detectedMaterials"
	pathLastUpdate = "lastUpdate"
)

// ref is the part of *db.Ref the store uses.
type ref interface {
	Get(ctx context.Context, v interface{}) error
	Set(ctx context.Context, v interface{}) error
}

// FirebaseStore writes to a Firebase Realtime Database.
type FirebaseStore struct {
	location   ref
	materials  ref
	lastUpdate ref
}

// NewFirebaseStore connects with a service account key. When databaseURL is
// empty it is derived from the key's project id.
func NewFirebaseStore(ctx context.Context, credentialsPath, databaseURL string) (*FirebaseStore, error) {
	if databaseURL == "" {
		url, err := databaseURLFromKey(credentialsPath)
		if err != nil {
			return nil, err
		}
		databaseURL = url
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL},
		option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialise firebase: %v", ErrStoreUnreachable, err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreUnreachable, err)
	}
	return &FirebaseStore{
		location:   client.NewRef(pathLocation),
		materials:  client.NewRef(pathMaterials),
		lastUpdate: client.NewRef(pathLastUpdate),
	}, nil
}

func databaseURLFromKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read service account key: %w", err)
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("failed to parse service account key: %w", err)
	}
	if key.ProjectID == "" {
		return "", fmt.Errorf("service account key %s has no project_id", path)
	}
	return fmt.Sprintf("https://%s-default-rtdb.firebaseio.com", key.ProjectID), nil
}

// SetLocation implements Store.
func (s *FirebaseStore) SetLocation(ctx context.Context, name string) error {
	return s.set(ctx, s.location, pathLocation, name)
}

// SetMaterials implements Store.
func (s *FirebaseStore) SetMaterials(ctx context.Context, counts materials.Counts) error {
	return s.set(ctx, s.materials, pathMaterials, counts)
}

// SetLastUpdate implements Store.
func (s *FirebaseStore) SetLastUpdate(ctx context.Context, ms int64) error {
	return s.set(ctx, s.lastUpdate, pathLastUpdate, ms)
}

// EnsureDefaults seeds the location and materials paths when they are
// missing and stamps lastUpdate.
func (s *FirebaseStore) EnsureDefaults(ctx context.Context, startName string, ms int64) error {
	var current interface{}
	if err := s.location.Get(ctx, &current); err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", ErrStoreUnreachable, pathLocation, err)
	}
	if current == nil {
		if err := s.SetLocation(ctx, startName); err != nil {
			return err
		}
	}

	current = nil
	if err := s.materials.Get(ctx, &current); err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", ErrStoreUnreachable, pathMaterials, err)
	}
	if current == nil {
		if err := s.SetMaterials(ctx, materials.Counts{}); err != nil {
			return err
		}
	}
	return s.SetLastUpdate(ctx, ms)
}

func (s *FirebaseStore) set(ctx context.Context, r ref, path string, v interface{}) error {
	if err := r.Set(ctx, v); err != nil {
		return fmt.Errorf("%w: failed to set %s: %v", ErrStoreUnreachable, path, err)
	}
	return nil
}
