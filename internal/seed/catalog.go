package seed

import (
	"context"
	_ "embed"
	"fmt"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is one built-in software entry.
type CatalogEntry struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	AccessLevels []string `yaml:"accessLevels"`
}

type catalogFile struct {
	Software []CatalogEntry `yaml:"software"`
}

// LoadCatalog parses the embedded catalog and validates every entry.
func LoadCatalog() ([]CatalogEntry, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(raw []byte) ([]CatalogEntry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(f.Software))
	for _, e := range f.Software {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry without a name")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		seen[e.Name] = true
		if _, err := levels(e.AccessLevels); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Name, err)
		}
	}
	return f.Software, nil
}

func levels(raw []string) ([]models.AccessLevel, error) {
	out := make([]models.AccessLevel, 0, len(raw))
	for _, r := range raw {
		l, err := models.ParseAccessLevel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return models.NormalizeAccessLevels(out)
}

// Catalog upserts the built-in entries by name. Existing entries get the
// description and access levels from the file.
func Catalog(ctx context.Context, db *gorm.DB) ([]*models.Software, error) {
	entries, err := LoadCatalog()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Software, 0, len(entries))
	for _, e := range entries {
		lv, _ := levels(e.AccessLevels)
		sw := &models.Software{
			Name:         e.Name,
			Description:  e.Description,
			AccessLevels: datatypes.JSONSlice[models.AccessLevel](lv),
		}
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "access_levels", "updated_at"}),
			}).Create(sw).Error; err != nil {
				return err
			}
			var stored models.Software
			if err := tx.Where("name = ?", e.Name).First(&stored).Error; err != nil {
				return err
			}
			*sw = stored
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed software %q: %w", e.Name, err)
		}
		cache.InvalidateSoftware(ctx, sw.ID)
		out = append(out, sw)
	}
	return out, nil
}
