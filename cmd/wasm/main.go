//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"resumematch/internal/adapter/chunker"
	"resumematch/internal/adapter/classifier"
	"resumematch/internal/adapter/embedding"
	"resumematch/internal/adapter/memstore"
	"resumematch/internal/adapter/ranker"
	"resumematch/internal/usecase"
)

const dimension = 256

var engine *usecase.Engine

func newEngine() *usecase.Engine {
	chk, err := chunker.NewCharChunker(1000, 100)
	if err != nil {
		panic(err)
	}
	cls, err := classifier.New(classifier.DefaultPolicy())
	if err != nil {
		panic(err)
	}
	e, err := usecase.NewEngine(usecase.Deps{
		Ledger:     memstore.NewLedger(),
		Index:      memstore.NewVectorIndex(dimension),
		Embedder:   embedding.NewHashEmbedder(dimension),
		Chunker:    chk,
		Classifier: cls,
		Summarizer: ranker.NewSummarizer(nil, 0, 0, nil),
	}, usecase.DefaultOptions(), nil)
	if err != nil {
		panic(err)
	}
	return e
}

func main() {
	c := make(chan struct{})
	engine = newEngine()

	js.Global().Set("rmIngest", js.FuncOf(ingestResume))
	js.Global().Set("rmSearch", js.FuncOf(searchProfiles))
	js.Global().Set("rmFeedback", js.FuncOf(addFeedback))
	js.Global().Set("rmClear", js.FuncOf(clearEngine))
	js.Global().Set("rmStats", js.FuncOf(getStats))

	<-c
}

func ingestResume(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: rmIngest(id, text, [force])")
	}
	req := usecase.IngestRequest{
		ID:       args[0].String(),
		Text:     args[1].String(),
		Metadata: map[string]string{usecase.MetaSource: args[0].String()},
	}
	if len(args) > 2 {
		req.SkipClassify = args[2].Truthy()
	}

	res, err := engine.AddResume(context.Background(), req)
	if err != nil {
		return makeResult(map[string]interface{}{
			"error":   err.Error(),
			"verdict": res.Verdict,
		})
	}
	return makeResult(map[string]interface{}{
		"success": true,
		"id":      res.ID,
		"chunks":  res.Chunks,
		"verdict": res.Verdict,
	})
}

func searchProfiles(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: rmSearch(query, [n])")
	}
	query := args[0].String()
	n := 5
	if len(args) > 1 {
		n = args[1].Int()
	}

	profiles, err := engine.Search(context.Background(), query, n)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}
	return makeResult(map[string]interface{}{
		"results": profiles,
		"query":   query,
	})
}

func addFeedback(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: rmFeedback(id, positive, [comment])")
	}
	comment := ""
	if len(args) > 2 {
		comment = args[2].String()
	}
	if err := engine.AddFeedback(context.Background(), args[0].String(), args[1].Truthy(), comment); err != nil {
		return makeError(err.Error())
	}
	return makeResult(map[string]interface{}{"success": true})
}

func clearEngine(this js.Value, args []js.Value) interface{} {
	engine = newEngine()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	ctx := context.Background()
	stats, err := engine.Stats(ctx)
	if err != nil {
		return makeError(err.Error())
	}
	feedback, err := engine.FeedbackStats(ctx)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(map[string]interface{}{
		"profiles": stats.Profiles,
		"chunks":   stats.Chunks,
		"feedback": feedback,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
