package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// 分割基準
const (
	CriterionGini      = "gini"
	CriterionEntropy   = "entropy"
	CriterionGainRatio = "gain_ratio"
)

// scoreEps は分割スコアの比較で同点とみなす幅
const scoreEps = 1e-12

// node は決定木のノード
//
// gob でエンコードするためフィールドは公開している。
type node struct {
	// Feature は分割に使う特徴量。葉では -1
	Feature int
	// Threshold は数値分割の閾値 (<= で左)
	Threshold float64
	// Categorical はカテゴリ値ごとの多分岐かどうか
	Categorical bool
	// Children は子ノード。数値分割では [左, 右]
	Children []*node
	// Counts は学習時にこのノードへ到達したサンプルのクラス分布
	Counts []float64
	// NSamples は学習時にこのノードへ到達したサンプル数
	NSamples int
	// Impurity はこのノードの不純度
	Impurity float64
}

func (n *node) isLeaf() bool { return len(n.Children) == 0 }

// largestChild は学習サンプル数が最大の子を返す (同数なら先頭)
func (n *node) largestChild() *node {
	best := n.Children[0]
	for _, c := range n.Children[1:] {
		if c.NSamples > best.NSamples {
			best = c
		}
	}
	return best
}

func (n *node) depth() int {
	d := 0
	for _, c := range n.Children {
		if cd := c.depth() + 1; cd > d {
			d = cd
		}
	}
	return d
}

func (n *node) leaves() int {
	if n.isLeaf() {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.leaves()
	}
	return total
}

func (n *node) size() int {
	total := 1
	for _, c := range n.Children {
		total += c.size()
	}
	return total
}

// impurity はクラス分布の不純度を計算する
func impurity(criterion string, counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 {
		return 0
	}
	p := make([]float64, len(counts))
	floats.ScaleTo(p, 1/total, counts)

	if criterion == CriterionGini {
		return 1 - floats.Dot(p, p)
	}
	return stat.Entropy(p)
}

// splitInfo は分岐サイズの情報量 (gain_ratio の分母)
func splitInfo(sizes []float64) float64 {
	return impurity(CriterionEntropy, sizes)
}

// candidate はある特徴量での最良分割
type candidate struct {
	feature     int
	threshold   float64
	categorical bool
	gain        float64
	score       float64
	valid       bool
}

// splitter は1ノード分の分割探索を行う
type splitter struct {
	criterion string
	minLeaf   int
	nClasses  int
	X         func(i, j int) float64
	y         []int
}

// evaluate は分岐ごとのクラス分布からゲインとスコアを計算する
//
// unknown は特徴量が欠損していたサンプル数。C4.5 と同様にゲインは
// 既知の割合で縮め、分割情報量には欠損を1本の枝として含める。
func (s *splitter) evaluate(parentKnown []float64, branches [][]float64, unknown float64) (gain, score float64) {
	known := floats.Sum(parentKnown)
	total := known + unknown

	weighted := 0.0
	sizes := make([]float64, 0, len(branches)+1)
	for _, b := range branches {
		nb := floats.Sum(b)
		if nb > 0 {
			weighted += errors.SafeDivide(nb, known) * impurity(s.criterion, b)
		}
		sizes = append(sizes, nb)
	}
	gain = errors.SafeDivide(known, total) * (impurity(s.criterion, parentKnown) - weighted)

	if s.criterion != CriterionGainRatio {
		return gain, gain
	}
	if unknown > 0 {
		sizes = append(sizes, unknown)
	}
	return gain, errors.SafeDivide(gain, splitInfo(sizes))
}

type sample struct {
	v     float64
	class int
}

// numeric は数値特徴量 j の最良の閾値を探す
func (s *splitter) numeric(j int, idx []int) candidate {
	best := candidate{feature: j}

	known := make([]sample, 0, len(idx))
	for _, i := range idx {
		if v := s.X(i, j); !math.IsNaN(v) {
			known = append(known, sample{v: v, class: s.y[i]})
		}
	}
	nk := len(known)
	if nk < 2*s.minLeaf || nk < 2 {
		return best
	}
	sort.SliceStable(known, func(a, b int) bool { return known[a].v < known[b].v })

	parent := make([]float64, s.nClasses)
	for _, k := range known {
		parent[k.class]++
	}
	unknown := float64(len(idx) - nk)

	left := make([]float64, s.nClasses)
	right := make([]float64, s.nClasses)
	for i := 0; i < nk-1; i++ {
		left[known[i].class]++
		if known[i].v == known[i+1].v {
			continue
		}
		nl := i + 1
		if nl < s.minLeaf || nk-nl < s.minLeaf {
			continue
		}
		floats.SubTo(right, parent, left)
		gain, score := s.evaluate(parent, [][]float64{left, right}, unknown)
		if !best.valid || score > best.score+scoreEps {
			best = candidate{
				feature:   j,
				threshold: (known[i].v + known[i+1].v) / 2,
				gain:      gain,
				score:     score,
				valid:     true,
			}
		}
	}
	return best
}

// categoryOf はカテゴリ値を枝番号に変換する。範囲外や欠損は -1
func categoryOf(v float64, k int) int {
	if math.IsNaN(v) || v < 0 || v != math.Trunc(v) || int(v) >= k {
		return -1
	}
	return int(v)
}

// nominal はカテゴリ特徴量 j の多分岐を評価する
func (s *splitter) nominal(j, k int, idx []int) candidate {
	best := candidate{feature: j, categorical: true}

	branches := make([][]float64, k)
	for c := range branches {
		branches[c] = make([]float64, s.nClasses)
	}
	parent := make([]float64, s.nClasses)
	unknown := 0.0
	for _, i := range idx {
		c := categoryOf(s.X(i, j), k)
		if c < 0 {
			unknown++
			continue
		}
		branches[c][s.y[i]]++
		parent[s.y[i]]++
	}

	// minLeaf 以上のサンプルを持つ枝が2本以上必要
	populated := 0
	for _, b := range branches {
		if floats.Sum(b) >= float64(s.minLeaf) && floats.Sum(b) > 0 {
			populated++
		}
	}
	if populated < 2 {
		return best
	}

	best.gain, best.score = s.evaluate(parent, branches, unknown)
	best.valid = true
	return best
}
