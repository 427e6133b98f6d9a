package charged

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set は「感情的に強い（charged）」単語の不変集合です。
// 生成後は変更されないため、ロックなしで複数のワーカーから共有できます。
type Set struct {
	words map[string]struct{}
}

// NewSet は、単語リストから Set を生成します。重複は1つにまとめられます。
func NewSet(words ...string) Set {
	s := Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w == "" {
			continue
		}
		s.words[w] = struct{}{}
	}
	return s
}

// Contains は、単語が集合に含まれるかを O(1) で判定します。
func (s Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len は、集合の要素数を返します。
func (s Set) Len() int {
	return len(s.words)
}

// DirectoryNotFoundError は、辞書ディレクトリが存在しないことを示すエラーです。
// 起動時の致命的な設定エラーとして扱われ、URL単位のエラーにはなりません。
type DirectoryNotFoundError struct {
	Dir string
	Err error
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("「charged」単語のディレクトリが見つかりません: %s", e.Dir)
}

func (e *DirectoryNotFoundError) Unwrap() error {
	return e.Err
}

// LoadDir は、ディレクトリ直下のすべてのファイルを読み込み、空白区切りの単語から Set を生成します。
// サブディレクトリは読み込み対象外です。
func LoadDir(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, &DirectoryNotFoundError{Dir: dir, Err: err}
		}
		return Set{}, fmt.Errorf("辞書ディレクトリの読み込みに失敗しました (%s): %w", dir, err)
	}

	// 読み込み順を安定させる
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var words []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return Set{}, fmt.Errorf("辞書ファイルの読み込みに失敗しました (%s): %w", path, err)
		}
		words = append(words, strings.Fields(string(raw))...)
	}

	return NewSet(words...), nil
}
