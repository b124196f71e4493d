package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Post 某个 feed 见过的一条链接，用来给没有日期的文章一个跨运行稳定的时间
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Feed        string    `gorm:"size:64;uniqueIndex:idx_feed_link" json:"feed"`
	Link        string    `gorm:"type:text;uniqueIndex:idx_feed_link" json:"link"`
	Title       string    `gorm:"size:512" json:"title"`
	FirstSeenAt time.Time `gorm:"index" json:"firstSeenAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Run 一次 feed 生成的结果
type Run struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Feed       string            `gorm:"size:64;index" json:"feed"`
	StartedAt  time.Time         `gorm:"index" json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Items      int               `json:"items"`
	Error      string            `gorm:"size:1024" json:"error"`
	Stats      datatypes.JSONMap `gorm:"type:jsonb" json:"stats"`
}

const (
	titleMaxRunes = 512
	errorMaxRunes = 1024
)

type Store struct {
	DB *gorm.DB
}

// Open 连接 PostgreSQL 并迁移表结构
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Post{}, &Run{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{DB: db}, nil
}

// FirstSeen 给没有日期的记录换上链接第一次出现的时间，并登记本次新出现的链接
func (s *Store) FirstSeen(ctx context.Context, feedName string, records []feed.PostRecord) ([]feed.PostRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	var known []Post
	err := s.DB.WithContext(ctx).
		Where("feed = ? AND link IN ?", feedName, feed.Links(records)).
		Find(&known).Error
	if err != nil {
		return nil, fmt.Errorf("load posts for %s: %w", feedName, err)
	}
	seen := make(map[string]time.Time, len(known))
	for _, p := range known {
		seen[p.Link] = p.FirstSeenAt
	}

	out, fresh := applyFirstSeen(feedName, records, seen)
	if len(fresh) > 0 {
		// 并发运行同一个 feed 时后写入的一方忽略冲突
		err := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(fresh, 100).Error
		if err != nil {
			return nil, fmt.Errorf("save posts for %s: %w", feedName, err)
		}
		logger.Infof("feed %s: %d new links recorded", feedName, len(fresh))
	}
	return out, nil
}

// applyFirstSeen 不修改入参，返回替换过时间的副本和需要新登记的链接
func applyFirstSeen(feedName string, records []feed.PostRecord, seen map[string]time.Time) ([]feed.PostRecord, []Post) {
	out := make([]feed.PostRecord, len(records))
	copy(out, records)

	var fresh []Post
	added := make(map[string]struct{})
	for i := range out {
		r := &out[i]
		if at, ok := seen[r.Link]; ok {
			if r.Undated {
				r.PublishedAt = at
			}
			continue
		}
		if _, ok := added[r.Link]; ok {
			continue
		}
		added[r.Link] = struct{}{}
		fresh = append(fresh, Post{
			Feed:        feedName,
			Link:        r.Link,
			Title:       truncateRunesDB(toValidUTF8(r.Title), titleMaxRunes),
			FirstSeenAt: r.PublishedAt,
		})
	}
	return out, fresh
}

// RecordRun 保存一次运行记录，ID 为空时自动生成
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Error = truncateRunesDB(toValidUTF8(run.Error), errorMaxRunes)
	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record run for %s: %w", run.Feed, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
