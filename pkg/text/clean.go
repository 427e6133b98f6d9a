package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// asciiPunctuation は、単語の両端から取り除く記号の集合です。
	asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// MinWordLength を超える長さのレンマのみを残します（前置詞・小詞の除外）。
	MinWordLength = 2

	// NegationWord は、短くても常に残す否定の小詞です。
	NegationWord = "не"
)

// decorationReplacer は、単語のどこにあっても取り除く装飾記号（«, », …）を削除します。
var decorationReplacer = strings.NewReplacer("«", "", "»", "", "…", "")

// CleanWord は、単語から装飾記号を除去し、両端の句読点を取り除きます。
func CleanWord(word string) string {
	word = decorationReplacer.Replace(word)
	word = strings.Trim(word, asciiPunctuation)
	return norm.NFC.String(word)
}

// keepLemma は、レンマを単語リストに残すかどうかを判定します。
func keepLemma(lemma string) bool {
	return utf8.RuneCountInString(lemma) > MinWordLength || lemma == NegationWord
}
