package tree

// Option はDecisionTreeClassifierの設定を変更する関数
type Option func(*DecisionTreeClassifier)

// WithCriterion は分割基準を設定する ("gini", "entropy", "gain_ratio")
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth は木の最大深さを設定する。負の値は無制限
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf は葉に必要な最小サンプル数を設定する
//
// カテゴリ特徴量の多分岐では、この数以上のサンプルを持つ枝が
// 2本以上ある場合にのみ分割する。
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithCategoricalFeatures はカテゴリ特徴量（列番号 -> カテゴリ数）を設定する
//
// カテゴリ特徴量の値は 0..k-1 の整数で、カテゴリごとに1本の枝を持つ
// 多分岐で分割される。
func WithCategoricalFeatures(cats map[int]int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.categorical = make(map[int]int, len(cats))
		for j, k := range cats {
			dt.categorical[j] = k
		}
	}
}

// WithClassLabels はクラスラベルを設定する
//
// 設定した場合、クラスは学習データに現れるかどうかに関わらず 0..len(labels)-1 となる。
func WithClassLabels(labels []string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.classLabels = append([]string(nil), labels...)
	}
}

// WithFeatureNames は String() の出力に使う特徴量名を設定する
func WithFeatureNames(names []string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.featureNames = append([]string(nil), names...)
	}
}

// WithParallelThreshold は分割探索を特徴量ごとに並列化する特徴量数の閾値を設定する
func WithParallelThreshold(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.parallelThreshold = n
	}
}
