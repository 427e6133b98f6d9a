package charged

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store は、現在有効な Set へのスナップショット参照を保持します。
// 再読み込みは Set 全体を差し替えるだけで、既存の Set を変更することはありません。
// そのため、バッチ開始時に取得したスナップショットはバッチ中ずっと同じ内容です。
type Store struct {
	dir     string
	current atomic.Pointer[Set]
}

// NewStore は、ディレクトリから Set を読み込み、Store を初期化します。
func NewStore(dir string) (*Store, error) {
	set, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir}
	s.current.Store(&set)
	return s, nil
}

// Snapshot は、現在の Set を返します。
func (s *Store) Snapshot() Set {
	return *s.current.Load()
}

// Reload は、ディレクトリを読み直して Set を差し替えます。
// 失敗した場合は以前の Set が有効なままです。
func (s *Store) Reload() error {
	set, err := LoadDir(s.dir)
	if err != nil {
		return err
	}
	s.current.Store(&set)
	return nil
}

// Watch は、辞書ディレクトリの変更を監視し、変更のたびに Reload を実行します。
// ctx がキャンセルされるまで実行されます。
func (s *Store) Watch(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return err
	}
	logger.Info("charged: 辞書ディレクトリの監視を開始しました", "dir", s.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := s.Reload(); err != nil {
				logger.Error("charged: 再読み込みに失敗しました。以前の辞書を使い続けます",
					"dir", s.dir, "err", err)
				continue
			}
			logger.Info("charged: 辞書を再読み込みしました", "dir", s.dir, "words", s.Snapshot().Len())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("charged: 監視エラー", "err", err)
		}
	}
}
