// Package tree は決定木分類器を提供する
//
// 数値特徴量は閾値による二分岐、カテゴリ特徴量はカテゴリごとの多分岐で分割する。
// 分割基準は gini、entropy、gain_ratio (C4.5) から選べる。枝刈りは行わない。
package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/treeprimer/core/model"
	"github.com/YuminosukeSato/treeprimer/core/parallel"
	"github.com/YuminosukeSato/treeprimer/metrics"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeClassifier は枝刈りなしの決定木分類器
//
// 使用例:
//
//	dt := tree.NewDecisionTreeClassifier(
//	    tree.WithCriterion("gain_ratio"),
//	    tree.WithMinSamplesLeaf(2),
//	)
//	err := dt.Fit(X, y)
//	pred, err := dt.Predict(XTest)
type DecisionTreeClassifier struct {
	model.BaseEstimator

	// ハイパーパラメータ
	criterion         string
	maxDepth          int
	minSamplesSplit   int
	minSamplesLeaf    int
	categorical       map[int]int
	classLabels       []string
	featureNames      []string
	parallelThreshold int

	// 学習結果
	root         *node
	classes_     []float64
	nClasses_    int
	nFeatures_   int
	importances_ []float64
}

var (
	_ model.Classifier      = (*DecisionTreeClassifier)(nil)
	_ model.ParameterGetter = (*DecisionTreeClassifier)(nil)
	_ model.ParameterSetter = (*DecisionTreeClassifier)(nil)
)

// NewDecisionTreeClassifier は新しい決定木分類器を作成する
//
// デフォルト: criterion=gini, max_depth=無制限, min_samples_split=2, min_samples_leaf=1
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		criterion:         CriterionGini,
		maxDepth:          -1,
		minSamplesSplit:   2,
		minSamplesLeaf:    1,
		parallelThreshold: 8,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch dt.criterion {
	case CriterionGini, CriterionEntropy, CriterionGainRatio:
	default:
		return errors.NewValidationError("criterion", "must be one of gini, entropy, gain_ratio", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	for j, k := range dt.categorical {
		if j < 0 || k < 1 {
			return errors.NewValidationError("categorical_features", "invalid feature or category count", fmt.Sprintf("%d:%d", j, k))
		}
	}
	return nil
}

// Fit は訓練データで決定木を構築する
//
// y は n×1 の行列 (またはベクトル) でクラス値を持つ。WithClassLabels を
// 指定した場合、クラス値は 0..len(labels)-1 の整数でなければならない。
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := dt.validateParams(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	ny, _ := y.Dims()
	if ny != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, ny, 0)
	}
	for j := range dt.categorical {
		if j >= p {
			return errors.NewValidationError("categorical_features", "feature index out of range", j)
		}
	}

	classes, yIdx, err := dt.encodeClasses(y, n)
	if err != nil {
		return err
	}

	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = p
	dt.importances_ = make([]float64, p)

	Xd := mat.DenseCopyOf(X)
	b := &builder{
		dt: dt,
		s: splitter{
			criterion: dt.criterion,
			minLeaf:   dt.minSamplesLeaf,
			nClasses:  dt.nClasses_,
			X:         Xd.At,
			y:         yIdx,
		},
		nFeatures: p,
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	dt.root = b.build(idx, 0)

	if total := floats.Sum(dt.importances_); total > 0 {
		for j := range dt.importances_ {
			dt.importances_[j] /= total
		}
	}
	dt.SetFitted()
	return nil
}

// encodeClasses はクラス値をクラス番号に変換する
func (dt *DecisionTreeClassifier) encodeClasses(y mat.Matrix, n int) ([]float64, []int, error) {
	var classes []float64
	if len(dt.classLabels) > 0 {
		classes = make([]float64, len(dt.classLabels))
		for k := range classes {
			classes[k] = float64(k)
		}
	} else {
		seen := make(map[float64]struct{})
		for i := 0; i < n; i++ {
			v := y.At(i, 0)
			if _, ok := seen[v]; !ok && !math.IsNaN(v) {
				seen[v] = struct{}{}
				classes = append(classes, v)
			}
		}
		sort.Float64s(classes)
	}

	lookup := make(map[float64]int, len(classes))
	for k, c := range classes {
		lookup[c] = k
	}
	yIdx := make([]int, n)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		k, ok := lookup[v]
		if !ok {
			return nil, nil, errors.NewValidationError("y", fmt.Sprintf("unknown or missing class value at row %d", i), v)
		}
		yIdx[i] = k
	}
	return classes, yIdx, nil
}

// builder は1回の Fit で木を再帰的に構築する
type builder struct {
	dt        *DecisionTreeClassifier
	s         splitter
	nFeatures int
}

func (b *builder) leaf(counts []float64, n int) *node {
	return &node{
		Feature:  -1,
		Counts:   counts,
		NSamples: n,
		Impurity: impurity(b.s.criterion, counts),
	}
}

func (b *builder) build(idx []int, depth int) *node {
	counts := make([]float64, b.s.nClasses)
	for _, i := range idx {
		counts[b.s.y[i]]++
	}
	nd := b.leaf(counts, len(idx))

	if len(idx) < b.dt.minSamplesSplit || nd.Impurity == 0 {
		return nd
	}
	if b.dt.maxDepth >= 0 && depth >= b.dt.maxDepth {
		return nd
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return nd
	}

	parts := b.partition(best, idx)
	nd.Feature = best.feature
	nd.Threshold = best.threshold
	nd.Categorical = best.categorical
	nd.Children = make([]*node, len(parts))
	decrease := float64(len(idx)) * nd.Impurity
	for c, part := range parts {
		if len(part) == 0 {
			// 学習サンプルのない枝は親の分布で予測する
			empty := b.leaf(counts, 0)
			empty.Impurity = nd.Impurity
			nd.Children[c] = empty
			continue
		}
		child := b.build(part, depth+1)
		nd.Children[c] = child
		decrease -= float64(child.NSamples) * child.Impurity
	}
	if decrease > 0 {
		b.dt.importances_[best.feature] += decrease
	}
	return nd
}

// bestSplit は全特徴量から最良の分割を選ぶ
//
// 特徴量ごとの探索は並列に行い、選択は特徴量番号の順に行うため
// 結果は並列度に依存しない。同点の場合は番号の小さい特徴量を選ぶ。
func (b *builder) bestSplit(idx []int) (candidate, bool) {
	results := make([]candidate, b.nFeatures)
	parallel.ForEach(b.nFeatures, b.dt.parallelThreshold, func(j int) {
		if k, ok := b.dt.categorical[j]; ok {
			results[j] = b.s.nominal(j, k, idx)
		} else {
			results[j] = b.s.numeric(j, idx)
		}
	})

	// gain_ratio では平均以上の情報利得を持つ候補だけを比較する (C4.5)
	minGain := math.Inf(-1)
	if b.s.criterion == CriterionGainRatio {
		sum, cnt := 0.0, 0
		for _, r := range results {
			if r.valid && r.gain > scoreEps {
				sum += r.gain
				cnt++
			}
		}
		if cnt == 0 {
			return candidate{}, false
		}
		minGain = sum/float64(cnt) - 1e-3
	}

	var best candidate
	for _, r := range results {
		if !r.valid || r.gain < minGain {
			continue
		}
		if b.s.criterion == CriterionGainRatio && r.gain <= scoreEps {
			continue
		}
		if !best.valid || r.score > best.score+scoreEps {
			best = r
		}
	}
	return best, best.valid
}

// partition は分割に従ってサンプルを振り分ける
// 特徴量が欠損しているサンプルは最も大きい枝に入れる
func (b *builder) partition(c candidate, idx []int) [][]int {
	var parts [][]int
	branchOf := func(v float64) int {
		if v <= c.threshold {
			return 0
		}
		return 1
	}
	if c.categorical {
		k := b.dt.categorical[c.feature]
		parts = make([][]int, k)
		branchOf = func(v float64) int { return categoryOf(v, k) }
	} else {
		parts = make([][]int, 2)
	}

	var missing []int
	for _, i := range idx {
		v := b.s.X(i, c.feature)
		if math.IsNaN(v) {
			missing = append(missing, i)
			continue
		}
		br := branchOf(v)
		if br < 0 {
			missing = append(missing, i)
			continue
		}
		parts[br] = append(parts[br], i)
	}
	if len(missing) > 0 {
		largest := 0
		for br := range parts {
			if len(parts[br]) > len(parts[largest]) {
				largest = br
			}
		}
		parts[largest] = append(parts[largest], missing...)
	}
	return parts
}

// distribution は1サンプルが到達するノードのクラス分布を返す
func (dt *DecisionTreeClassifier) distribution(x func(j int) float64) []float64 {
	nd := dt.root
	for !nd.isLeaf() {
		v := x(nd.Feature)
		switch {
		case math.IsNaN(v):
			nd = nd.largestChild()
		case nd.Categorical:
			c := categoryOf(v, len(nd.Children))
			if c < 0 {
				// 未知のカテゴリはこのノードの分布で予測する
				return nd.Counts
			}
			nd = nd.Children[c]
		case v <= nd.Threshold:
			nd = nd.Children[0]
		default:
			nd = nd.Children[1]
		}
	}
	return nd.Counts
}

func (dt *DecisionTreeClassifier) checkInput(op string, X mat.Matrix) (int, error) {
	if err := dt.CheckFitted("DecisionTreeClassifier", op); err != nil {
		return 0, err
	}
	n, p := X.Dims()
	if p != dt.nFeatures_ {
		return 0, errors.NewDimensionError("DecisionTreeClassifier."+op, dt.nFeatures_, p, 1)
	}
	return n, nil
}

// Predict は各サンプルのクラス値を n×1 の行列で返す
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, err := dt.checkInput("Predict", X)
	if err != nil {
		return nil, err
	}
	pred := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		counts := dt.distribution(func(j int) float64 { return X.At(i, j) })
		pred.Set(i, 0, dt.classes_[floats.MaxIdx(counts)])
	}
	return pred, nil
}

// PredictProba は各クラスの確率を n×n_classes の行列で返す
//
// 列の順序は Classes() の順序と一致する。
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, err := dt.checkInput("PredictProba", X)
	if err != nil {
		return nil, err
	}
	proba := mat.NewDense(n, dt.nClasses_, nil)
	for i := 0; i < n; i++ {
		counts := dt.distribution(func(j int) float64 { return X.At(i, j) })
		total := floats.Sum(counts)
		for k, c := range counts {
			if total > 0 {
				proba.Set(i, k, c/total)
			} else {
				proba.Set(i, k, 1/float64(dt.nClasses_))
			}
		}
	}
	return proba, nil
}

// Score は正解率を返す。予測できない場合は0
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := pred.Dims()
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return 0
	}
	return acc
}

// Classes は PredictProba の列に対応するクラス値を返す
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// GetFeatureImportances は不純度減少に基づく特徴量重要度 (合計1) を返す
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetDepth は木の深さを返す (根のみの場合は0)
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.root == nil {
		return 0
	}
	return dt.root.depth()
}

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.root == nil {
		return 0
	}
	return dt.root.leaves()
}

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = v
		case "max_depth", "min_samples_split", "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			switch key {
			case "max_depth":
				dt.maxDepth = v
			case "min_samples_split":
				dt.minSamplesSplit = v
			default:
				dt.minSamplesLeaf = v
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return dt.validateParams()
}

func (dt *DecisionTreeClassifier) featureName(j int) string {
	if j < len(dt.featureNames) {
		return dt.featureNames[j]
	}
	return "x" + strconv.Itoa(j)
}

func (dt *DecisionTreeClassifier) classLabel(k int) string {
	if k < len(dt.classLabels) {
		return dt.classLabels[k]
	}
	return strconv.FormatFloat(dt.classes_[k], 'f', -1, 64)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String は木をテキストで表現する
func (dt *DecisionTreeClassifier) String() string {
	if !dt.IsFitted() {
		return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d, min_samples_leaf=%d)",
			dt.criterion, dt.maxDepth, dt.minSamplesLeaf)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "DecisionTreeClassifier (criterion=%s)\n\n", dt.criterion)
	if dt.root.isLeaf() {
		sb.WriteString(": " + dt.leafText(dt.root) + "\n")
	} else {
		dt.writeNode(&sb, dt.root, 0)
	}
	fmt.Fprintf(&sb, "\nNumber of Leaves  : \t%d\n", dt.root.leaves())
	fmt.Fprintf(&sb, "\nSize of the tree : \t%d\n", dt.root.size())
	return sb.String()
}

func (dt *DecisionTreeClassifier) leafText(nd *node) string {
	k := floats.MaxIdx(nd.Counts)
	errs := float64(nd.NSamples) - nd.Counts[k]
	if nd.NSamples == 0 {
		errs = 0
	}
	if errs > 0 {
		return fmt.Sprintf("%s (%.1f/%.1f)", dt.classLabel(k), float64(nd.NSamples), errs)
	}
	return fmt.Sprintf("%s (%.1f)", dt.classLabel(k), float64(nd.NSamples))
}

func (dt *DecisionTreeClassifier) writeNode(sb *strings.Builder, nd *node, level int) {
	name := dt.featureName(nd.Feature)
	for c, child := range nd.Children {
		sb.WriteString(strings.Repeat("|   ", level))
		switch {
		case nd.Categorical:
			fmt.Fprintf(sb, "%s = %d", name, c)
		case c == 0:
			fmt.Fprintf(sb, "%s <= %s", name, formatValue(nd.Threshold))
		default:
			fmt.Fprintf(sb, "%s > %s", name, formatValue(nd.Threshold))
		}
		if child.isLeaf() {
			sb.WriteString(": " + dt.leafText(child) + "\n")
			continue
		}
		sb.WriteString("\n")
		dt.writeNode(sb, child, level+1)
	}
}

// treeSnapshot は gob で保存する木の状態
type treeSnapshot struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Categorical     map[int]int
	ClassLabels     []string
	FeatureNames    []string
	Classes         []float64
	NFeatures       int
	Importances     []float64
	Root            *node
}

// GobEncode は学習済みの木をエンコードする
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	if err := dt.CheckFitted("DecisionTreeClassifier", "GobEncode"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeSnapshot{
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		Categorical:     dt.categorical,
		ClassLabels:     dt.classLabels,
		FeatureNames:    dt.featureNames,
		Classes:         dt.classes_,
		NFeatures:       dt.nFeatures_,
		Importances:     dt.importances_,
		Root:            dt.root,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode decision tree")
	}
	return buf.Bytes(), nil
}

// GobDecode は GobEncode の出力から木を復元する
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s treeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode decision tree")
	}
	if s.Root == nil {
		return errors.NewValueError("DecisionTreeClassifier.GobDecode", "missing tree root")
	}
	dt.criterion = s.Criterion
	dt.maxDepth = s.MaxDepth
	dt.minSamplesSplit = s.MinSamplesSplit
	dt.minSamplesLeaf = s.MinSamplesLeaf
	dt.categorical = s.Categorical
	dt.classLabels = s.ClassLabels
	dt.featureNames = s.FeatureNames
	dt.classes_ = s.Classes
	dt.nClasses_ = len(s.Classes)
	dt.nFeatures_ = s.NFeatures
	dt.importances_ = s.Importances
	dt.root = s.Root
	if dt.parallelThreshold == 0 {
		dt.parallelThreshold = 8
	}
	dt.SetFitted()
	return nil
}
