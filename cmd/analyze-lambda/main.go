// Command analyze-lambda serves stateless crisis analysis behind API Gateway.
// It never stores drafts; the keyword database is cached for the life of the
// container.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/whisperbox/cmd/mainconfig"
	"github.com/wolfman30/whisperbox/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

const maxBodyBytes = 64 << 10

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	source, err := bootstrap.BuildKeywordSource(cfg, s3.NewFromConfig(awsCfg, mainconfig.S3Options(cfg)), nil, logger)
	if err != nil {
		logger.Error("invalid crisis keyword source", "error", err)
		os.Exit(1)
	}
	analyzer := crisis.NewAnalyzer(crisis.NewLoader(source, logger).WithFetchTimeout(cfg.CrisisKeywordsFetchTimeout), logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, analyzer, evt)
	})
}

func handle(ctx context.Context, analyzer *crisis.Analyzer, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	path = strings.TrimSuffix(path, "/")

	switch path {
	case "/health", "/_health":
		return textResponse(http.StatusOK, "ok"), nil
	case "/crisis/analyze":
		if method != http.MethodPost {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
		}
		return analyze(ctx, analyzer, evt), nil
	case "/crisis/resources":
		if method != http.MethodGet {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
		}
		level, ok := crisis.ParseLevel(evt.QueryStringParameters["level"])
		if !ok {
			return jsonResponse(http.StatusBadRequest, map[string]string{"error": "level must be one of critical, high, medium, low"}), nil
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"level":     level,
			"resources": crisis.ResourcesByLevel(analyzer.Database(ctx), level),
		}), nil
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
}

func analyze(ctx context.Context, analyzer *crisis.Analyzer, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	body, err := decodeBody(evt)
	if err != nil || len(body) > maxBodyBytes {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	var req crisis.AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}
	return jsonResponse(http.StatusOK, analyzer.Analyze(ctx, req.Title, req.Content))
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func textResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"content-type": "text/plain"},
	}
}

func jsonResponse(status int, payload any) events.APIGatewayV2HTTPResponse {
	data, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(data),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}
