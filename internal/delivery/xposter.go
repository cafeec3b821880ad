package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"TrendWatch/internal/digest"
	"TrendWatch/internal/store"
	"TrendWatch/pkg/logger"
)

// XPoster posts the digest summary to X via the v2 tweets endpoint.
type XPoster struct {
	BearerToken string
	MaxChars    int
	BaseURL     string
	Client      *http.Client
	DryRun      bool
}

// NewXPoster creates a poster with optional proxy support.
func NewXPoster(bearerToken string, maxChars int, proxyURL string, dryRun bool) *XPoster {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &XPoster{
		BearerToken: bearerToken,
		MaxChars:    maxChars,
		BaseURL:     "https://api.twitter.com",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		DryRun: dryRun,
	}
}

// Post publishes the digest tweet once per run date. A second call for the
// same date is a no-op when a tweet already went out.
func (x *XPoster) Post(d *digest.Digest, st *store.Store, reportID int64) error {
	posted, err := st.HasTweetForDate(d.RunDate)
	if err != nil {
		return err
	}
	if posted {
		logger.L().Info("tweet already posted, skipping", zap.String("run_date", d.RunDate.Format("2006-01-02")))
		return nil
	}

	text, err := d.Tweet(x.MaxChars)
	if err != nil {
		return err
	}
	entry := &store.TweetLog{ReportID: reportID, RunDate: d.RunDate, Payload: text}

	if x.DryRun {
		entry.Status = "dry_run"
		logger.L().Info("tweet dry run", zap.String("text", text))
		return st.InsertTweetLog(entry)
	}

	tweetID, err := x.postTweet(text)
	if err != nil {
		entry.Status = "failed"
		entry.ErrMessage = err.Error()
		if logErr := st.InsertTweetLog(entry); logErr != nil {
			logger.L().Warn("record tweet failure", zap.Error(logErr))
		}
		return err
	}

	entry.Status = "posted"
	entry.TweetID = tweetID
	logger.L().Info("tweet posted", zap.String("tweet_id", tweetID))
	return st.InsertTweetLog(entry)
}

func (x *XPoster) postTweet(text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal tweet payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, x.BaseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+x.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("x API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	return result.Data.ID, nil
}
