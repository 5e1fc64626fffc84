package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	SoftwareKeyPrefix = "software:%d"
	CatalogKey        = "software:all"
	RevokedKeyPrefix  = "blacklist:%s"
)

const (
	UserTTL     = 5 * time.Minute
	SoftwareTTL = 10 * time.Minute
	CatalogTTL  = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func SoftwareKey(softwareID uint) string {
	return fmt.Sprintf(SoftwareKeyPrefix, softwareID)
}

func RevokedKey(jti string) string {
	return fmt.Sprintf(RevokedKeyPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateSoftware drops the entry and the cached catalog listing.
func InvalidateSoftware(ctx context.Context, softwareID uint) {
	Invalidate(ctx, SoftwareKey(softwareID), CatalogKey)
}
