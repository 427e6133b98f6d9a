package morph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Normalizer は、単語を辞書形（レンマ）に正規化する機能のインターフェースを定義します。
// 実装は純粋関数であり、並行して呼び出されても安全でなければなりません。
// 解析できない単語に対しても何らかの正規形を返します（失敗はありません）。
type Normalizer interface {
	Lemma(word string) string
}

// ----------------------------------------------------------------------
// フォールバック実装
// ----------------------------------------------------------------------

// Lowercase は、単語を小文字化するだけの Normalizer です。
// 辞書データが設定されていない場合のフォールバックとして利用します。
type Lowercase struct{}

// Lemma は小文字化した単語を返します。
func (Lowercase) Lemma(word string) string {
	return strings.ToLower(word)
}

// ----------------------------------------------------------------------
// 辞書ベースの実装
// ----------------------------------------------------------------------

// Dictionary は、語形からレンマへの対応表を持つ Normalizer です。
// 生成後は変更されないため、ロックなしで複数のゴルーチンから共有できます。
type Dictionary struct {
	forms map[string]string
}

// NewDictionary は、語形 -> レンマの対応表から Dictionary を生成します。
// キーと値は小文字化されて格納されます。
func NewDictionary(forms map[string]string) *Dictionary {
	d := &Dictionary{forms: make(map[string]string, len(forms))}
	for form, lemma := range forms {
		d.forms[strings.ToLower(form)] = strings.ToLower(lemma)
	}
	return d
}

// Lemma は、単語のレンマを返します。辞書にない単語は小文字化した形を返します。
func (d *Dictionary) Lemma(word string) string {
	lower := strings.ToLower(word)
	if lemma, ok := d.forms[lower]; ok {
		return lemma
	}
	return lower
}

// Len は、辞書に登録された語形の数を返します。
func (d *Dictionary) Len() int {
	return len(d.forms)
}

// LoadDictionary は、タブ区切り（語形<TAB>レンマ）のファイルから Dictionary を読み込みます。
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("レンマ辞書ファイルを開けませんでした (%s): %w", path, err)
	}
	defer f.Close()

	d, err := ReadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("レンマ辞書の読み込みに失敗しました (%s): %w", path, err)
	}
	return d, nil
}

// ReadDictionary は、r からタブ区切りの対応表を読み込みます。
// 空行と '#' で始まる行は無視されます。
func ReadDictionary(r io.Reader) (*Dictionary, error) {
	forms := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		form, lemma, ok := strings.Cut(line, "\t")
		form, lemma = strings.TrimSpace(form), strings.TrimSpace(lemma)
		if !ok || form == "" || lemma == "" {
			return nil, fmt.Errorf("%d行目の形式が不正です: %q", lineNo, line)
		}
		forms[form] = lemma
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewDictionary(forms), nil
}
