package health

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// PhotoDirChecker guards the disk photo backend: readiness fails when the
// upload directory is missing or not a directory.
type PhotoDirChecker struct {
	dir string
}

func NewPhotoDirChecker(dir string) Checker {
	if dir == "" {
		return nil
	}
	return &PhotoDirChecker{dir: dir}
}

func (c *PhotoDirChecker) Check(context.Context) CheckResult {
	res := CheckResult{Name: "photo_dir", Healthy: true}
	info, err := os.Stat(c.dir)
	switch {
	case err != nil:
		res.Healthy = false
		res.Error = err.Error()
	case !info.IsDir():
		res.Healthy = false
		res.Error = fmt.Sprintf("%s is not a directory", c.dir)
	}
	return res
}
