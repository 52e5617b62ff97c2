package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEps はlog(0)を避けるためのクリッピング幅
const logLossEps = 1e-15

// checkPair は2つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率を計算する
//
// ラベルはクラスインデックス（0, 1, 2, ...）として比較される
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// ConfusionMatrix は nClasses × nClasses の混同行列を返す
// 行が実際のクラス、列が予測クラス
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if nClasses <= 0 {
		return nil, errors.NewValidationError("nClasses", "must be positive", nClasses)
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < n; i++ {
		a, p := yTrue.AtVec(i), yPred.AtVec(i)
		ai, pi := int(a), int(p)
		if a != float64(ai) || p != float64(pi) || ai < 0 || pi < 0 || ai >= nClasses || pi >= nClasses {
			return nil, errors.NewValueError("ConfusionMatrix", "labels must be class indices in [0, nClasses)")
		}
		cm.Set(ai, pi, cm.At(ai, pi)+1)
	}
	return cm, nil
}

// isBinary はラベルが0か1のみであるかを確認する
func isBinary(y *mat.VecDense) bool {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return false
		}
	}
	return true
}

// AUC はROC曲線下面積を計算する（二値分類のみ）
//
// Mann-Whitney U統計量として計算し、同スコアのペアは0.5として数える。
// 片方のクラスしか存在しない場合は未定義のため0.5を返し、警告を出す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if !isBinary(yTrue) {
		return 0, errors.NewValueError("AUC", "yTrue must contain only 0 and 1")
	}
	if err := checkScores("AUC", yScore, n); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	// 同順位は平均ランクを割り当てる
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg, rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	u := rankSum - nPos*(nPos+1)/2
	return u / (nPos * nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rScore, cScore := yScore.Dims()
	if rTrue == 0 || cTrue == 0 || cScore == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rScore {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rScore, 0)
	}

	t := mat.NewVecDense(rTrue, nil)
	s := mat.NewVecDense(rScore, nil)
	for i := 0; i < rTrue; i++ {
		t.SetVec(i, yTrue.At(i, 0))
		s.SetVec(i, yScore.At(i, 0))
	}
	return AUC(t, s)
}

// BinaryLogLoss は二値分類の対数損失を計算する
// 確率は [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if !isBinary(yTrue) {
		return 0, errors.NewValueError("BinaryLogLoss", "yTrue must contain only 0 and 1")
	}
	if err := checkScores("BinaryLogLoss", yProb, n); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yProb.AtVec(i), logLossEps), 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// checkScores rejects NaN and Inf scores, which would break ranking and log.
func checkScores(op string, v *mat.VecDense, n int) error {
	for i := 0; i < n; i++ {
		if err := errors.CheckScalar(op, v.AtVec(i), i); err != nil {
			return err
		}
	}
	return nil
}
