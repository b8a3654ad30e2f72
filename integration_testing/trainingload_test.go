//go:build integration_test || all_tests

package integration_testing

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/2beens/trainingload/internal/trainingload"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
)

func (s *IntegrationTestSuite) do(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte) {
	t := s.T()

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) uploadFIT(ctx context.Context, athleteID int64, name string, content []byte) (int, []byte) {
	t := s.T()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("name", name))
	part, err := writer.CreateFormFile("file", "activity.fit")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return s.do(ctx, http.MethodPost, fmt.Sprintf("/activities/%d/fit", athleteID), body, writer.FormDataContentType())
}

func testRideFIT(start time.Time, normalizedPower uint16) ([]byte, error) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, err
	}
	file.FileId.SerialNumber = uint32(gofakeit.Number(1, 1_000_000))
	file.FileId.TimeCreated = start

	activity, err := file.Activity()
	if err != nil {
		return nil, err
	}

	session := fit.NewSessionMsg()
	session.Timestamp = start.Add(time.Hour)
	session.StartTime = start
	session.Sport = fit.SportCycling
	session.TotalElapsedTime = 3600 * 1000
	session.TotalTimerTime = 3600 * 1000
	session.TotalDistance = 32000 * 100
	session.NormalizedPower = normalizedPower
	session.AvgPower = normalizedPower - 10
	session.AvgHeartRate = 145
	activity.Sessions = append(activity.Sessions, session)

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *IntegrationTestSuite) TestTrainingLoad() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t := s.T()
	athleteID := int64(gofakeit.Number(1_000, 1_000_000))

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO athlete_profile (athlete_id, ftp_watts, lthr_bpm, target_weekly_tss)
		VALUES ($1, 250, 170, 300)
	`, athleteID)
	require.NoError(t, err)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO activities (
			athlete_id, source_activity_id, name, sport_type, start_date, timezone,
			distance_m, moving_time_s, elapsed_time_s, weighted_average_watts
		) VALUES ($1, $2, 'Morning Ride', 'Ride', '2024-05-01T08:00:00Z', '(GMT+00:00) UTC', 30000, 3600, 3700, 250)
	`, athleteID, athleteID*10)
	require.NoError(t, err)

	// nothing built yet
	code, _ := s.do(ctx, http.MethodGet, fmt.Sprintf("/athletes/%d/daily-metrics/latest", athleteID), nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := s.do(ctx, http.MethodPost, fmt.Sprintf("/metrics/%d/rebuild", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code, string(body))

	var result trainingload.RebuildResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, athleteID, result.AthleteID)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.DailyRows)
	assert.Equal(t, 1, result.UpdatedActivityMetrics)
	require.NotNil(t, result.Range)
	require.NotNil(t, result.Range.From)
	assert.Equal(t, "2024-05-01", *result.Range.From)
	require.NotNil(t, result.WeeklySummary)
	require.Len(t, result.WeeklySummary.Weeks, 1)

	code, body = s.do(ctx, http.MethodGet, fmt.Sprintf("/athletes/%d/daily-metrics/latest", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code, string(body))
	var latest trainingload.DailyMetric
	require.NoError(t, json.Unmarshal(body, &latest))
	assert.InDelta(t, 100.0, latest.TSS, 1e-9)
	assert.InDelta(t, 100.0/42.0, latest.CTL, 1e-9)
	assert.InDelta(t, 100.0/7.0, latest.ATL, 1e-9)

	// a FIT upload two days later, then the same file again
	fitBytes, err := testRideFIT(time.Date(2024, 5, 3, 7, 0, 0, 0, time.UTC), 200)
	require.NoError(t, err)

	code, body = s.uploadFIT(ctx, athleteID, "Tempo", fitBytes)
	require.Equal(t, http.StatusCreated, code, string(body))
	var uploaded trainingload.Activity
	require.NoError(t, json.Unmarshal(body, &uploaded))
	assert.Positive(t, uploaded.ID)
	assert.Negative(t, uploaded.SourceActivityID)
	assert.Equal(t, "Tempo", uploaded.Name)

	code, _ = s.uploadFIT(ctx, athleteID, "Tempo", fitBytes)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.uploadFIT(ctx, athleteID, "Garbage", []byte("not a fit file"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(ctx, http.MethodPost, fmt.Sprintf("/metrics/%d/rebuild", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 3, result.DailyRows)
	assert.Equal(t, 1, result.UpdatedActivityMetrics)

	code, body = s.do(ctx, http.MethodGet, fmt.Sprintf("/athletes/%d/metrics/ctl-atl/last-7-days", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code, string(body))
	var recent []trainingload.DailyMetric
	require.NoError(t, json.Unmarshal(body, &recent))
	require.Len(t, recent, 3)
	assert.Equal(t, "2024-05-01", trainingload.FormatDay(recent[0].Day))
	assert.Equal(t, "2024-05-03", trainingload.FormatDay(recent[2].Day))
	assert.InDelta(t, 64.0, recent[2].TSS, 1e-9)

	code, body = s.do(ctx, http.MethodGet, fmt.Sprintf("/athletes/%d/daily-metrics?from=2024-05-02&to=2024-05-03", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code, string(body))
	var rows []trainingload.DailyMetric
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0].TSS)

	code, body = s.do(ctx, http.MethodGet, fmt.Sprintf("/athletes/%d/daily-metrics/export?from=2024-05-01&to=2024-05-03", athleteID), nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, bytes.HasPrefix(body, []byte("PAR1")))

	// no activity source configured in this suite
	code, _ = s.do(ctx, http.MethodPost, fmt.Sprintf("/activities/%d/import", athleteID), nil, "")
	assert.Equal(t, http.StatusInternalServerError, code)
}
