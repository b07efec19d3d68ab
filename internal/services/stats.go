package services

import (
	"time"

	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/models"
)

// Stats computes derived reports over committed ledger state. All queries run
// on the read pool and never touch the write path.
type Stats struct {
	db *database.Manager
}

func NewStats(db *database.Manager) *Stats {
	return &Stats{db: db}
}

// UserStats is the per-user earnings summary.
type UserStats struct {
	UserID         string
	DisplayName    string
	TotalEarned    int
	ChaptersCount  int
	PendingTasks   int64
	SubmittedTasks int64
	RecentChapters []models.Chapter
}

// TeamStats is the team-wide summary.
type TeamStats struct {
	TotalChapters  int64
	TotalEarnings  int
	PendingTasks   int64
	SubmittedTasks int64
	TopUsers       []LeaderboardRow
}

// LeaderboardRow is one per-user aggregate line. Ordering is by chapter count
// descending with user id ascending as the deterministic tie-break.
type LeaderboardRow struct {
	UserID      string
	DisplayName string
	Chapters    int
	Earnings    int
}

// UserStats returns totals over settled chapters, the 10 most recent
// chapters, and live pending/submitted counts.
func (s *Stats) UserStats(userID string) (*UserStats, error) {
	const op = "stats.UserStats"

	out := &UserStats{UserID: userID}
	db := s.db.Read()

	var totals struct {
		Total int
		Count int
	}
	err := db.Raw(
		"SELECT COALESCE(SUM(price), 0) AS total, COUNT(*) AS count FROM chapters WHERE user_id = ?",
		userID,
	).Scan(&totals).Error
	if err != nil {
		return nil, wrapStorage(op, "failed to sum chapters", err)
	}
	out.TotalEarned = totals.Total
	out.ChaptersCount = totals.Count

	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(10).
		Find(&out.RecentChapters).Error; err != nil {
		return nil, wrapStorage(op, "failed to read recent chapters", err)
	}

	if err := db.Model(&models.Task{}).
		Where("user_id = ? AND status = ?", userID, models.StatusPending).
		Count(&out.PendingTasks).Error; err != nil {
		return nil, wrapStorage(op, "failed to count pending tasks", err)
	}
	if err := db.Model(&models.Task{}).
		Where("user_id = ? AND status = ?", userID, models.StatusSubmitted).
		Count(&out.SubmittedTasks).Error; err != nil {
		return nil, wrapStorage(op, "failed to count submitted tasks", err)
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err == nil {
		out.DisplayName = user.DisplayName
	}

	return out, nil
}

// TeamStats returns team totals plus the top 5 users by chapter count.
func (s *Stats) TeamStats() (*TeamStats, error) {
	const op = "stats.TeamStats"

	out := &TeamStats{}
	db := s.db.Read()

	if err := db.Model(&models.Chapter{}).Count(&out.TotalChapters).Error; err != nil {
		return nil, wrapStorage(op, "failed to count chapters", err)
	}
	var total struct{ Total int }
	if err := db.Raw("SELECT COALESCE(SUM(price), 0) AS total FROM chapters").Scan(&total).Error; err != nil {
		return nil, wrapStorage(op, "failed to sum earnings", err)
	}
	out.TotalEarnings = total.Total

	if err := db.Model(&models.Task{}).
		Where("status = ?", models.StatusPending).
		Count(&out.PendingTasks).Error; err != nil {
		return nil, wrapStorage(op, "failed to count pending tasks", err)
	}
	if err := db.Model(&models.Task{}).
		Where("status = ?", models.StatusSubmitted).
		Count(&out.SubmittedTasks).Error; err != nil {
		return nil, wrapStorage(op, "failed to count submitted tasks", err)
	}

	top, err := s.Leaderboard(5)
	if err != nil {
		return nil, err
	}
	out.TopUsers = top

	return out, nil
}

// Leaderboard returns the top n users by settled chapter count.
func (s *Stats) Leaderboard(n int) ([]LeaderboardRow, error) {
	const op = "stats.Leaderboard"

	if n < 1 {
		n = 5
	}
	var rows []LeaderboardRow
	err := s.db.Read().Raw(`
		SELECT c.user_id,
		       COALESCE(u.display_name, '') AS display_name,
		       COUNT(*) AS chapters,
		       COALESCE(SUM(c.price), 0) AS earnings
		FROM chapters c
		LEFT JOIN users u ON u.id = c.user_id
		GROUP BY c.user_id, u.display_name
		ORDER BY chapters DESC, c.user_id ASC
		LIMIT ?`, n,
	).Scan(&rows).Error
	if err != nil {
		return nil, wrapStorage(op, "failed to build leaderboard", err)
	}
	return rows, nil
}

// WeeklyReport returns the per-user breakdown over the trailing 7 days.
func (s *Stats) WeeklyReport() ([]LeaderboardRow, error) {
	const op = "stats.WeeklyReport"

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	var rows []LeaderboardRow
	err := s.db.Read().Raw(`
		SELECT c.user_id,
		       COALESCE(u.display_name, '') AS display_name,
		       COUNT(*) AS chapters,
		       COALESCE(SUM(c.price), 0) AS earnings
		FROM chapters c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.created_at >= ?
		GROUP BY c.user_id, u.display_name
		ORDER BY chapters DESC, c.user_id ASC`, weekAgo,
	).Scan(&rows).Error
	if err != nil {
		return nil, wrapStorage(op, "failed to build weekly report", err)
	}
	return rows, nil
}
