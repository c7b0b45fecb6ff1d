package common

// AuthorizationHeaderName is the HTTP header used to carry the access token
// on outbound remote-store requests.
const AuthorizationHeaderName = "Authorization"
