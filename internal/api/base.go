package api

// DefaultBaseURL is the hosted box backend used when no api_url is configured.
const DefaultBaseURL = "https://msj-box-backend.herokuapp.com"
