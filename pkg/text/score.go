package text

import (
	"math"

	"github.com/shouni/go-jaundice/pkg/charged"
)

// CalculateJaundiceRate は、記事の単語リストに含まれる「charged」単語の割合（0〜100）を計算します。
// 結果は小数点以下2桁に丸められます。単語リストが空の場合は 0 を返します。
func CalculateJaundiceRate(articleWords []string, chargedWords charged.Set) float64 {
	if len(articleWords) == 0 {
		return 0.0
	}

	found := 0
	for _, w := range articleWords {
		if chargedWords.Contains(w) {
			found++
		}
	}

	score := float64(found) / float64(len(articleWords)) * 100
	return math.Round(score*100) / 100
}
