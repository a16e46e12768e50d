package narmax

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/profile"
)

var benchModel *Model

func BenchmarkFit(b *testing.B) {
	y, u := trainingData(2000, 0.02)
	opt := twoTermOptions()

	var err error
	b.ResetTimer()
	for b.Loop() {
		var id *Identifier
		id, err = New(opt)
		if err != nil {
			panic(err)
		}
		benchModel, err = id.Fit(context.Background(), y, u)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkFitDefault(b *testing.B) {
	y, u := trainingData(2000, 0.02)

	var err error
	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		var id *Identifier
		id, err = New(nil)
		if err != nil {
			panic(err)
		}
		benchModel, err = id.Fit(context.Background(), y, u)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkModelSaveLoad(b *testing.B) {
	y, u := trainingData(800, 0.02)
	id, err := New(twoTermOptions())
	if err != nil {
		panic(err)
	}
	model, err := id.Fit(context.Background(), y, u)
	if err != nil {
		panic(err)
	}

	b.ResetTimer()
	for b.Loop() {
		var buf bytes.Buffer
		if err := model.Save(&buf); err != nil {
			panic(err)
		}
		if benchModel, err = LoadModel(&buf); err != nil {
			panic(err)
		}
	}
}
