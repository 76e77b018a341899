package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// OAuthHandler handles the OAuth provider callback
type OAuthHandler struct {
	authService    AuthServiceInterface
	clientRedirect string
}

// NewOAuthHandler creates a new OAuthHandler.
//
// Parameters:
//   - authService: Performs the code exchange and opens the session
//   - clientRedirect: The client page that receives the tokens
func NewOAuthHandler(authService AuthServiceInterface, clientRedirect string) *OAuthHandler {
	return &OAuthHandler{
		authService:    authService,
		clientRedirect: clientRedirect,
	}
}

// GoogleCallback exchanges the authorization code and redirects the browser
// to the client with the new tokens in the query string.
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get(constants.QueryParamCode)

	pair, newUser, err := h.authService.OAuthLogin(r.Context(), code)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	query := url.Values{}
	query.Set("access_token", pair.AccessToken)
	query.Set("refresh_token", pair.RefreshToken)
	query.Set("new_user", strconv.FormatBool(newUser))

	http.Redirect(w, r, h.clientRedirect+"?"+query.Encode(), http.StatusFound)
}
