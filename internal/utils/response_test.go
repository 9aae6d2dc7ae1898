package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

func TestEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		respond func(c *fiber.Ctx) error
		status  int
		want    map[string]interface{}
		absent  []string
	}{
		{
			name: "created submission",
			respond: func(c *fiber.Ctx) error {
				return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "", fiber.Map{"id": 3})
			},
			status: fiber.StatusCreated,
			want:   map[string]interface{}{"success": true, "message": "success"},
			absent: []string{"details", "meta"},
		},
		{
			name: "pending list with total",
			respond: func(c *fiber.Ctx) error {
				return utils.OK(c, []int{1, 2}, "pending submissions", fiber.Map{"total": 2})
			},
			status: fiber.StatusOK,
			want:   map[string]interface{}{"success": true, "message": "pending submissions", "meta": map[string]interface{}{"total": float64(2)}},
			absent: []string{"details"},
		},
		{
			name: "missing steps",
			respond: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusBadRequest, "mandatory steps missing evidence: 2", fiber.Map{"missing_steps": []int{2}})
			},
			status: fiber.StatusBadRequest,
			want: map[string]interface{}{
				"success": false,
				"details": map[string]interface{}{"missing_steps": []interface{}{float64(2)}},
			},
			absent: []string{"data"},
		},
		{
			name: "bare error",
			respond: func(c *fiber.Ctx) error {
				return utils.SendError(c, fiber.StatusNotFound, "")
			},
			status: fiber.StatusNotFound,
			want:   map[string]interface{}{"success": false, "message": "error"},
			absent: []string{"data", "details", "meta"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.respond)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			for key, value := range tc.want {
				require.Equal(t, value, payload[key], key)
			}
			for _, key := range tc.absent {
				require.NotContains(t, payload, key)
			}
		})
	}
}
