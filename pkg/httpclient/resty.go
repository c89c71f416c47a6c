package httpclient

import (
	"context"
	"time"

	"golang-algotrade/pkg/logger"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
	log    *logger.Logger
}

func New(log *logger.Logger, baseURL string, timeout time.Duration, bearerToken string) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")
	if bearerToken != "" {
		client.SetAuthToken(bearerToken)
	}

	rc := &RestyClient{client: client, log: log}
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		rc.log.DebugContext(resp.Request.Context(), "HTTP request completed",
			logger.StringField("method", resp.Request.Method),
			logger.StringField("url", resp.Request.URL),
			logger.IntField("status_code", resp.StatusCode()),
			logger.Field("duration", resp.Time()),
		)
		return nil
	})
	return rc
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx).SetResult(result)

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	if resp == nil {
		return nil, err
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, err
}
