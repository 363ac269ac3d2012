/*
Package sessionsdk is a small client for the sessiond HTTP surface.

Client covers the unauthenticated endpoints:

	client := sessionsdk.NewClient("https://sessions.example.com")

	health, err := client.GetReadiness(ctx)

	// RFC 7009: succeeds whether or not the token was known.
	err = client.Revoke(ctx, refreshToken, sessionsdk.HintRefreshToken)

Session wraps an access token for the endpoints that require a bearer. When
the service binds tokens to a device, set the fingerprint the token was
issued with:

	session := client.NewSession(accessToken).WithDeviceFingerprint(fp)

	info, err := session.Introspect(ctx, someToken, "")
	n, err := session.LogoutAll(ctx)

Every non-2xx response is returned as an *APIError. IsInvalidToken reports
whether the bearer itself was rejected.
*/
package sessionsdk
