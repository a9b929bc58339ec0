package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/openmobileid/mobileconnect/pkg/authentication"
	"github.com/openmobileid/mobileconnect/pkg/discovery"
	"github.com/openmobileid/mobileconnect/pkg/logging"
	"github.com/openmobileid/mobileconnect/pkg/mobileconnect"
)

const sessionCookie = "mc_sdksession"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo relying party",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.ConfigureFromEnv()
		logger := logging.GetLogger("mcdemo")

		if redirectURL == "" {
			redirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
		}

		mc, err := mobileconnect.New(mobileconnect.Config{
			ClientID:                    clientID,
			ClientSecret:                clientSecret,
			DiscoveryURL:                discoveryURL,
			RedirectURL:                 redirectURL,
			CacheResponsesWithSessionID: true,
			UseCorrelationID:            true,
		})
		if err != nil {
			return err
		}

		rp := &relyingParty{mc: mc}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/", rp.index)
		r.Get("/discovery", rp.startDiscovery)
		r.Get("/callback", rp.callback)
		r.Get("/userinfo", rp.userInfo)

		logger.Info().Int("port", port).Str("redirect_url", redirectURL).Msg("starting demo relying party")
		return http.ListenAndServe(fmt.Sprintf(":%d", port), r)
	},
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	serveCmd.Flags().StringVar(&redirectURL, "redirect-url", "", "Registered callback URL (defaults to http://localhost:<port>/callback)")
	serveCmd.Flags().StringVar(&scope, "scope", "openid", "Scope to request at authentication")

	rootCmd.AddCommand(serveCmd)
}

type relyingParty struct {
	mc *mobileconnect.MobileConnect
}

func (rp *relyingParty) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html><body>
<h1>Mobile Connect demo</h1>
<form action="/discovery" method="get">
  <label>MSISDN <input name="msisdn" placeholder="+447700900000"></label>
  <label>MCC <input name="mcc" size="4"></label>
  <label>MNC <input name="mnc" size="4"></label>
  <button type="submit">Sign in with Mobile Connect</button>
</form>
</body></html>`)
}

func (rp *relyingParty) startDiscovery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := rp.mc.AttemptDiscovery(r.Context(),
		q.Get("msisdn"), q.Get("mcc"), q.Get("mnc"), r.Cookies(), discovery.Options{})

	switch status.Type {
	case mobileconnect.StatusOperatorSelection:
		http.Redirect(w, r, status.URL, http.StatusFound)

	case mobileconnect.StatusStartAuthentication:
		auth := rp.mc.StartAuthenticationBySession(status.SDKSession, "",
			authentication.Options{Scope: scope}, "")
		if auth.Type != mobileconnect.StatusAuthentication {
			writeStatus(w, auth)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: status.SDKSession, Path: "/"})
		http.Redirect(w, r, auth.URL, http.StatusFound)

	default:
		writeStatus(w, status)
	}
}

func (rp *relyingParty) callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "no session cookie; start at /", http.StatusBadRequest)
		return
	}

	status := rp.mc.HandleURLRedirectBySession(r.Context(), cookie.Value, r.URL.String())
	if status.Type == mobileconnect.StatusStartAuthentication {
		// operator selection finished; continue to authentication
		auth := rp.mc.StartAuthenticationBySession(status.SDKSession, "",
			authentication.Options{Scope: scope}, "")
		if auth.Type == mobileconnect.StatusAuthentication {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: status.SDKSession, Path: "/"})
			http.Redirect(w, r, auth.URL, http.StatusFound)
			return
		}
		status = auth
	}
	writeStatus(w, status)
}

func (rp *relyingParty) userInfo(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "no session cookie; start at /", http.StatusBadRequest)
		return
	}
	accessToken := r.URL.Query().Get("access_token")
	if accessToken == "" {
		http.Error(w, "access_token query parameter is required", http.StatusBadRequest)
		return
	}

	writeStatus(w, rp.mc.RequestUserInfoBySession(r.Context(), cookie.Value, accessToken))
}

func writeStatus(w http.ResponseWriter, status *mobileconnect.Status) {
	w.Header().Set("Content-Type", "application/json")
	if status.Type == mobileconnect.StatusError {
		w.WriteHeader(http.StatusBadGateway)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(status)
}
