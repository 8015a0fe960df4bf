// Package expiry は売約済み出品の自動削除ジョブを提供する。
// 売約から保持期間（デフォルト24時間）を経過した出品を定期バッチで削除する。
//
// 期限はsold_atからSQLで毎回再計算するため、プロセス内にタイマー状態を
// 持たない。プロセスが再起動しても期限切れの判定は失われず、
// 停止中に期限を迎えた出品は次回実行時にまとめて削除される。
package expiry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExpiryRecorder は期限切れ削除件数のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type ExpiryRecorder interface {
	RecordListingsExpired(count int)
}

// DefaultRetention は売約済み出品のデフォルト保持期間。
const DefaultRetention = 24 * time.Hour

// Job は売約済み出品の自動削除ジョブ。
// 短い間隔で繰り返し実行される前提で設計されており、冪等な削除処理を保証する。
type Job struct {
	db       Executor
	logger   *slog.Logger
	recorder ExpiryRecorder
	// Retention は売約から削除までの保持期間（デフォルト: 24時間）。
	Retention time.Duration
}

// NewJob は新しいJobを生成する。recorderはnilを許容する。
func NewJob(db Executor, logger *slog.Logger, recorder ExpiryRecorder) *Job {
	return &Job{
		db:        db,
		logger:    logger,
		recorder:  recorder,
		Retention: DefaultRetention,
	}
}

// Run は保持期間を経過した売約済み出品を削除する。
// sold_atがRetention前より古い売約済み出品をDELETEする。
// 未売約の出品（sold_at IS NULL）は対象外。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d seconds", int64(j.Retention.Seconds()))

	query := `DELETE FROM listings WHERE is_sold = true AND sold_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("期限切れ出品の削除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("retention", j.Retention),
		)
		return fmt.Errorf("期限切れ出品の削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.recorder != nil && deletedCount > 0 {
		j.recorder.RecordListingsExpired(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("期限切れ出品の削除ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでジョブを起動する。
// 起動直後に1回実行し、プロセス停止中に期限を迎えた出品を回収する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("期限切れ出品の削除スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("期限切れ出品の削除サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("期限切れ出品の削除スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("期限切れ出品の削除サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
