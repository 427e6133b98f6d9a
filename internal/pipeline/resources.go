package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-jaundice/pkg/charged"
	"github.com/shouni/go-jaundice/pkg/morph"
	"github.com/shouni/go-jaundice/pkg/scraper"
)

type loadedResources struct {
	store      *charged.Store
	normalizer morph.Normalizer
}

// Resources は、辞書と正規化器を初回の利用時に一度だけ読み込む scraper.ResourceProvider です。
// 読み込みに失敗した場合、そのエラーは以後の呼び出しでも同じく返されます。
type Resources struct {
	load func() (*loadedResources, error)
}

// NewResources は Resources を生成します。この時点ではファイルを読みません。
// lemmaFile が空の場合は小文字化のみを行う正規化器を使います。
func NewResources(chargedDir, lemmaFile string, logger *slog.Logger) *Resources {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resources{
		load: sync.OnceValues(func() (*loadedResources, error) {
			store, err := charged.NewStore(chargedDir)
			if err != nil {
				return nil, fmt.Errorf("扇情語辞書の読み込みに失敗しました: %w", err)
			}

			var normalizer morph.Normalizer = morph.Lowercase{}
			if lemmaFile != "" {
				dict, err := morph.LoadDictionary(lemmaFile)
				if err != nil {
					return nil, fmt.Errorf("レンマ辞書の読み込みに失敗しました: %w", err)
				}
				normalizer = dict
				logger.Info("レンマ辞書を読み込みました", "path", lemmaFile, "forms", dict.Len())
			}

			logger.Info("扇情語辞書を読み込みました", "dir", chargedDir, "words", store.Snapshot().Len())
			return &loadedResources{store: store, normalizer: normalizer}, nil
		}),
	}
}

// Resources は scraper.ResourceProvider インターフェースを満たします。
// 扇情語は呼び出し時点のスナップショットを返します。
func (r *Resources) Resources() (scraper.Resources, error) {
	loaded, err := r.load()
	if err != nil {
		return scraper.Resources{}, err
	}
	return scraper.Resources{
		Normalizer: loaded.normalizer,
		Charged:    loaded.store.Snapshot(),
	}, nil
}

// Store は、辞書の監視や再読み込みに使う charged.Store を返します。
func (r *Resources) Store() (*charged.Store, error) {
	loaded, err := r.load()
	if err != nil {
		return nil, err
	}
	return loaded.store, nil
}
