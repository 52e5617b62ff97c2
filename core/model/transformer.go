package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
//
// Fitで学習したパラメータはTransformの呼び出し間で変化しない。
// 訓練データでFitし、訓練・テストの両方にTransformを適用する使い方を想定している。
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は逆変換可能な変換器のインターフェース
type InverseTransformer interface {
	Transformer

	// InverseTransform は変換前のスケールに戻す
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
