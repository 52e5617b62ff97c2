// Package treeprimer runs a small, reproducible classification experiment:
// a CSV dataset goes through missing-row removal, seeded resampling,
// string-to-nominal conversion, a positional train/test split and min-max
// normalization before an unpruned decision tree is trained and its test
// predictions are printed.
//
// # Installation
//
//	go install github.com/YuminosukeSato/treeprimer/cmd/treeprimer@latest
//
// # Quick Start
//
// With the default configuration the command reads data/data60.csv and
// prints one "<actual> , <predicted>" line per test row:
//
//	$ treeprimer
//	========================
//	Predicting test:
//	1.0 , 1.0
//	0.0 , 1.0
//	...
//
// Every step is also available as a library:
//
//	ds, err := dataset.LoadCSV("weather.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds, _ = preprocessing.UseFilter(ds, preprocessing.NewRemoveMissing())
//	ds, _ = preprocessing.UseFilter(ds, preprocessing.NewStringToNominal())
//	_ = ds.SetClassIndex(ds.NumAttributes() - 1)
//	train, test, _ := dataset.TrainTestSplit(ds, 0.7)
//
//	X, _ := train.FeatureMatrix()
//	y, _ := train.ClassVector()
//	clf := tree.NewDecisionTreeClassifier(
//	    tree.WithCriterion(tree.CriterionGainRatio),
//	    tree.WithCategoricalFeatures(train.CategoricalFeatures()),
//	)
//	if err := clf.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - dataset: typed in-memory tables, CSV loading, positional split
//   - preprocessing: dataset filters (RemoveMissing, Resample, StringToNominal,
//     NumericToNominal, Normalize, Standardize) and matrix scalers
//   - sklearn/tree: DecisionTreeClassifier (gini, entropy, gain ratio)
//   - metrics: accuracy, confusion matrix, AUC, log loss
//   - report: prediction listing, CSV/XLSX export, importance plot
//   - pipeline: the end-to-end run
//   - scraper: ARSO weather-archive downloader producing the input CSVs
//     (cmd/arsoscrape)
//   - internal/config: defaults, YAML file and PRIMER_* environment; ARSO_*
//     for the downloader
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// # Configuration
//
// Values are layered: defaults, then the YAML file named by -config or
// PRIMER_CONFIG_FILE, then environment variables such as PRIMER_DATA_PATH,
// PRIMER_SEED or PRIMER_TREE_CRITERION.
//
// # License
//
// treeprimer is released under the MIT License.
package treeprimer
