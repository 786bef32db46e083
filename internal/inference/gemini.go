package inference

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/metervision/meter-reading-api/internal/apperr"
	"github.com/metervision/meter-reading-api/internal/imagestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const meterPrompt = "Give me a measure of water or gas based on the image I'm sending you. " +
	"Just answer me an entire amount, without any text. " +
	"If the image is not water or gas, just return the value 0."

// GeminiReader derives meter readings from photos using the Gemini
// vision API. The only contract is that it returns an integer or an
// error; reading accuracy is up to the model.
type GeminiReader struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiReader creates a reader for the given API key and model name.
func NewGeminiReader(apiKey, model string, timeout time.Duration, logger *zap.Logger) *GeminiReader {
	return &GeminiReader{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		timeout: timeout,
		logger:  logger,
	}
}

// ReadMeasurement submits the image and a fixed instruction to Gemini and
// parses the reply as a base-10 integer. Transport failures, timeouts and
// unparseable replies all surface as API_ERROR; no retries are performed.
func (g *GeminiReader) ReadMeasurement(ctx context.Context, encodedImage, fileName string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := imagestore.DecodePayload(encodedImage)
	if err != nil {
		return 0, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		g.logger.Error("failed to create gemini client", zap.Error(err))
		return 0, externalAPIError()
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx,
		&genai.Blob{MIMEType: mimeTypeFromFileName(fileName), Data: data},
		genai.Text(meterPrompt),
	)
	if err != nil {
		g.logger.Error("gemini request failed", zap.Error(err))
		return 0, externalAPIError()
	}

	reply := strings.TrimSpace(firstText(resp))
	value, err := strconv.ParseInt(reply, 10, 64)
	if err != nil {
		g.logger.Error("failed to parse gemini reply as integer",
			zap.String("reply", reply),
			zap.Error(err))
		return 0, externalAPIError()
	}

	return value, nil
}

// mimeTypeFromFileName derives the MIME type from the stored file's
// extension, matching the subtype declared at upload.
func mimeTypeFromFileName(fileName string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	return "image/" + ext
}

func externalAPIError() error {
	return apperr.New(http.StatusInternalServerError, apperr.CodeAPIError, "Erro ao consultar a API externa")
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
