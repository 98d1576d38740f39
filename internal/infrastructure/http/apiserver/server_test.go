package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	apprecipe "github.com/alchemorsel/recipe-server/internal/application/recipe"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	gormrepo "github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/alchemorsel/recipe-server/test/testutils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const registrationPassword = "let me in"

// APIServerTestSuite drives the JSON API over a real SQLite store
type APIServerTestSuite struct {
	suite.Suite
	db       *testutils.TestDatabase
	config   *config.Config
	tokens   *memory.CacheRepository
	service  *apprecipe.Service
	handler  http.Handler
	http     *testutils.HTTPAssertions
	factory  *testutils.RecipeFactory
	pancakes inbound.AddRecipeCommand
	omelette inbound.AddRecipeCommand
}

func (suite *APIServerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (suite *APIServerTestSuite) SetupTest() {
	suite.db = testutils.NewSQLiteDatabase(suite.T())
	repo := gormrepo.NewRecipeRepository(suite.db.GormDB, zap.NewNop(), gormrepo.WithSeed(4))
	suite.service = apprecipe.NewService(repo, apprecipe.NewState(), nil, zap.NewNop())

	hash, err := security.HashPassword(registrationPassword, bcrypt.MinCost)
	require.NoError(suite.T(), err)
	suite.config = testutils.TestConfig()
	suite.config.Auth.RegistrationPasswordHash = hash
	suite.tokens = memory.NewCacheRepository()
	auth := security.NewAuthService(suite.config.Auth, suite.tokens, nil, zap.NewNop())

	server, err := NewAPIServer(suite.config, zap.NewNop(), suite.service, auth, nil)
	require.NoError(suite.T(), err)
	suite.handler = server.Handler()
	suite.http = testutils.NewHTTPAssertions(suite.T())

	suite.factory = testutils.NewRecipeFactory(21)
	suite.pancakes = suite.add("2 cups flour", "1 egg", "1 cup milk")
	suite.omelette = suite.add("3 eggs", "butter", "salt")
}

func (suite *APIServerTestSuite) TearDownTest() {
	_ = suite.tokens.Close()
}

func (suite *APIServerTestSuite) add(ingredients ...string) inbound.AddRecipeCommand {
	cmd := suite.factory.Command(ingredients...)
	_, err := suite.service.AddRecipe(context.Background(), cmd)
	require.NoError(suite.T(), err)
	return cmd
}

func (suite *APIServerTestSuite) do(method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, BasePath+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	suite.handler.ServeHTTP(rec, req)
	return rec
}

func (suite *APIServerTestSuite) recipe(rec *httptest.ResponseRecorder) inbound.RecipeDTO {
	var dto inbound.RecipeDTO
	suite.http.JSONResponse(rec, &dto)
	return dto
}

func (suite *APIServerTestSuite) token() string {
	rec := suite.do(http.MethodPost, "/register", security.Registration{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Password: registrationPassword,
	}, nil)
	suite.http.StatusCode(rec, http.StatusOK)

	var body security.AuthBody
	suite.http.JSONResponse(rec, &body)
	return body.AccessToken
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func (suite *APIServerTestSuite) TestGetRecipe() {
	suite.Run("Existing_ShouldReturnRecipe", func() {
		rec := suite.do(http.MethodGet, "/recipe/"+strconv.FormatInt(suite.pancakes.ID, 10), nil, nil)

		suite.http.StatusCode(rec, http.StatusOK)
		dto := suite.recipe(rec)
		testutils.NewRecipeAssertions(suite.T()).DTOMatchesCommand(&dto, suite.pancakes)
		assert.NotEmpty(suite.T(), rec.Header().Get("X-Request-ID"))
	})

	suite.Run("Missing_ShouldReturnNotFound", func() {
		for _, id := range []string{"999", "abc", "0"} {
			rec := suite.do(http.MethodGet, "/recipe/"+id, nil, nil)

			suite.http.StatusCode(rec, http.StatusNotFound, id)
			suite.http.ErrorCode(rec, apperrors.CodeRecipeNotFound)
		}
	})
}

func (suite *APIServerTestSuite) TestRecipeByIngredients() {
	cases := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantID     int64
	}{
		{"PostUnique", http.MethodPost, "/recipe-by-ingredients", []string{"milk"}, http.StatusOK, suite.pancakes.ID},
		{"PostConjunction", http.MethodPost, "/recipe-by-ingredients", []string{"eggs", "butter"}, http.StatusOK, suite.omelette.ID},
		{"PostAmbiguous", http.MethodPost, "/recipe-by-ingredients", []string{"egg"}, http.StatusNotFound, 0},
		{"PostNoMatch", http.MethodPost, "/recipe-by-ingredients", []string{"chocolate"}, http.StatusNotFound, 0},
		{"PostEmpty", http.MethodPost, "/recipe-by-ingredients", []string{}, http.StatusNotFound, 0},
		{"PostMalformed", http.MethodPost, "/recipe-by-ingredients", `{"flour": true}`, http.StatusBadRequest, 0},
		{"GetQuery", http.MethodGet, "/recipe-by-ingredients?ingredients=flour,egg", nil, http.StatusOK, suite.pancakes.ID},
		{"GetMissingQuery", http.MethodGet, "/recipe-by-ingredients", nil, http.StatusNotFound, 0},
	}

	for _, tc := range cases {
		suite.Run(tc.name, func() {
			rec := suite.do(tc.method, tc.path, tc.body, nil)

			suite.http.StatusCode(rec, tc.wantStatus)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(suite.T(), tc.wantID, suite.recipe(rec).ID)
			}
		})
	}
}

func (suite *APIServerTestSuite) TestRandomRecipe_ShouldReturnStoredRecipe() {
	known := map[int64]bool{suite.pancakes.ID: true, suite.omelette.ID: true}

	for i := 0; i < 10; i++ {
		rec := suite.do(http.MethodGet, "/random-recipe", nil, nil)

		suite.http.StatusCode(rec, http.StatusOK)
		assert.True(suite.T(), known[suite.recipe(rec).ID])
	}
	assert.Nil(suite.T(), suite.service.Current(), "API reads never set the current recipe")
}

func (suite *APIServerTestSuite) TestRegister() {
	suite.Run("CorrectPassword_ShouldIssueBearerToken", func() {
		rec := suite.do(http.MethodPost, "/register", security.Registration{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Password: registrationPassword,
		}, nil)

		suite.http.StatusCode(rec, http.StatusOK)
		var body security.AuthBody
		suite.http.JSONResponse(rec, &body)
		assert.Equal(suite.T(), security.TokenTypeBearer, body.TokenType)
		assert.NotEmpty(suite.T(), body.AccessToken)
	})

	suite.Run("WrongPassword_ShouldReturnUnauthorized", func() {
		rec := suite.do(http.MethodPost, "/register", security.Registration{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Password: "guess",
		}, nil)

		suite.http.StatusCode(rec, http.StatusUnauthorized)
		suite.http.ErrorCode(rec, apperrors.CodeInvalidCredentials)
	})

	suite.Run("MissingEmail_ShouldReturnBadRequest", func() {
		rec := suite.do(http.MethodPost, "/register", map[string]string{
			"full_name": "Ada Lovelace",
			"password":  registrationPassword,
		}, nil)

		suite.http.StatusCode(rec, http.StatusBadRequest)
		suite.http.ErrorCode(rec, apperrors.CodeValidationFailed)
	})
}

func (suite *APIServerTestSuite) TestAddRecipe() {
	token := suite.token()

	suite.Run("WithoutToken_ShouldReturnUnauthorized", func() {
		rec := suite.do(http.MethodPost, "/add-recipe", suite.factory.Command(), nil)

		suite.http.StatusCode(rec, http.StatusUnauthorized)
		suite.http.ErrorCode(rec, apperrors.CodeUnauthorized)
	})

	suite.Run("BadToken_ShouldReturnUnauthorized", func() {
		rec := suite.do(http.MethodPost, "/add-recipe", suite.factory.Command(), bearer("not-a-token"))

		suite.http.StatusCode(rec, http.StatusUnauthorized)
	})

	suite.Run("Valid_ShouldCreateRecipe", func() {
		cmd := suite.factory.Command("200g dark chocolate", "3 eggs", "sugar")

		rec := suite.do(http.MethodPost, "/add-recipe", cmd, bearer(token))

		suite.http.StatusCode(rec, http.StatusCreated)
		got := suite.do(http.MethodGet, "/recipe/"+strconv.FormatInt(cmd.ID, 10), nil, nil)
		suite.http.StatusCode(got, http.StatusOK)
		dto := suite.recipe(got)
		testutils.NewRecipeAssertions(suite.T()).DTOMatchesCommand(&dto, cmd)
	})

	suite.Run("DuplicateID_ShouldReturnConflict", func() {
		dup := suite.factory.Command()
		dup.ID = suite.pancakes.ID

		rec := suite.do(http.MethodPost, "/add-recipe", dup, bearer(token))

		suite.http.StatusCode(rec, http.StatusConflict)
		suite.http.ErrorCode(rec, apperrors.CodeDuplicateRecipe)
	})

	suite.Run("MissingTitle_ShouldReturnValidationError", func() {
		cmd := suite.factory.Command()
		cmd.Title = ""

		rec := suite.do(http.MethodPost, "/add-recipe", cmd, bearer(token))

		suite.http.StatusCode(rec, http.StatusBadRequest)
		suite.http.ErrorCode(rec, apperrors.CodeValidationFailed)
	})

	suite.Run("MalformedJSON_ShouldReturnValidationError", func() {
		rec := suite.do(http.MethodPost, "/add-recipe", `{"id": "seven"`, bearer(token))

		suite.http.StatusCode(rec, http.StatusBadRequest)
		suite.http.ErrorCode(rec, apperrors.CodeValidationFailed)
	})
}

func (suite *APIServerTestSuite) TestOpenAPI() {
	yamlRec := suite.do(http.MethodGet, "/openapi.yaml", nil, nil)
	suite.http.StatusCode(yamlRec, http.StatusOK)
	assert.Contains(suite.T(), yamlRec.Body.String(), "openapi: 3.0.3")

	jsonRec := suite.do(http.MethodGet, "/openapi.json", nil, nil)
	var doc map[string]interface{}
	suite.http.JSONResponse(jsonRec, &doc)
	assert.Equal(suite.T(), "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(suite.T(), ok)
	for _, p := range []string{"/recipe/{id}", "/recipe-by-ingredients", "/random-recipe", "/register", "/add-recipe"} {
		assert.Contains(suite.T(), paths, p)
	}
}

func (suite *APIServerTestSuite) TestUnknownRoute_ShouldReturnNotFoundEnvelope() {
	rec := suite.do(http.MethodGet, "/nope", nil, nil)

	suite.http.StatusCode(rec, http.StatusNotFound)
	suite.http.ErrorCode(rec, apperrors.CodeNotFound)
}

func TestAPIServerTestSuite(t *testing.T) {
	suite.Run(t, new(APIServerTestSuite))
}
