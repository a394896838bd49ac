//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/tidwall/gjson"

	"blueprint-optimizer/internal/buildorder"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// maxLambdaHorizon keeps a single invocation inside the function timeout.
const maxLambdaHorizon = 40

var lambdaCfg *Config

type optimizeRequest struct {
	Mode        Mode
	Horizon     int
	Count       int
	Blueprints  []*buildorder.Blueprint
	includePlan bool
}

// parseRequest reads {"blueprints": <text or JSON array>, "mode": "...", "horizon": n,
// "count": n, "plan": bool}.
func parseRequest(body string, cfg *Config) (*optimizeRequest, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("invalid JSON")
	}
	req := &optimizeRequest{Mode: ModeQuality, Count: cfg.Runner.ProductCount}

	if m := gjson.Get(body, "mode"); m.Exists() {
		mode, err := ParseMode(m.String())
		if err != nil {
			return nil, err
		}
		req.Mode = mode
	}

	req.Horizon = cfg.Runner.QualityHorizon
	if req.Mode == ModeProduct {
		req.Horizon = cfg.Runner.ProductHorizon
	}
	if h := gjson.Get(body, "horizon"); h.Exists() {
		req.Horizon = int(h.Int())
	}
	if req.Horizon < 0 || req.Horizon > maxLambdaHorizon {
		return nil, fmt.Errorf("horizon must be within 0..%d", maxLambdaHorizon)
	}
	if c := gjson.Get(body, "count"); c.Exists() {
		req.Count = int(c.Int())
		if req.Count < 1 {
			return nil, fmt.Errorf("count must be at least 1")
		}
	}
	req.includePlan = gjson.Get(body, "plan").Bool()

	raw := gjson.Get(body, "blueprints")
	var err error
	switch {
	case !raw.Exists():
		return nil, fmt.Errorf("missing blueprints field")
	case raw.IsArray():
		req.Blueprints, err = ParseJSON(raw.Raw)
	case raw.Type == gjson.String:
		req.Blueprints, err = ParseText(raw.String())
	default:
		return nil, fmt.Errorf("blueprints must be text or an array")
	}
	if err != nil {
		return nil, err
	}
	if len(req.Blueprints) == 0 {
		return nil, fmt.Errorf("no blueprints given")
	}
	return req, nil
}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}
	if strings.TrimSpace(body) == "" {
		return errResp(http.StatusBadRequest, "empty body")
	}

	req, err := parseRequest(body, lambdaCfg)
	if err != nil {
		return errResp(http.StatusBadRequest, err.Error())
	}

	cfg := *lambdaCfg
	cfg.Search.TrackPlan = cfg.Search.TrackPlan || req.includePlan
	out, err := NewRunner(&cfg, nil).Run(ctx, req.Mode, req.Blueprints, req.Horizon, req.Count)
	if err != nil {
		return errResp(http.StatusInternalServerError, err.Error())
	}
	if !req.includePlan {
		for i := range out.Results {
			out.Results[i].Plan = nil
		}
	}

	respJSON, _ := json.Marshal(out)
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusOK, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	cfg, err := LoadConfig("")
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	lambdaCfg = cfg
	lambda.Start(handler)
}
