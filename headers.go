package trino

// Request-direction protocol headers. The client always works with the Trino
// vocabulary internally; canonicalHeader translates to the X-Presto- form
// when the client is configured for a Presto coordinator.
const (
	UserHeader               = "X-Trino-User"
	OriginalUserHeader       = "X-Trino-Original-User"
	OriginalRolesHeader      = "X-Trino-Original-Roles"
	SourceHeader             = "X-Trino-Source"
	CatalogHeader            = "X-Trino-Catalog"
	SchemaHeader             = "X-Trino-Schema"
	PathHeader               = "X-Trino-Path"
	TimeZoneHeader           = "X-Trino-Time-Zone"
	LanguageHeader           = "X-Trino-Language"
	TraceTokenHeader         = "X-Trino-Trace-Token"
	SessionHeader            = "X-Trino-Session"
	RoleHeader               = "X-Trino-Role"
	PreparedStatementHeader  = "X-Trino-Prepared-Statement"
	TransactionHeader        = "X-Trino-Transaction-Id"
	ClientInfoHeader         = "X-Trino-Client-Info"
	ClientTagsHeader         = "X-Trino-Client-Tags"
	ClientCapabilitiesHeader = "X-Trino-Client-Capabilities"
	ResourceEstimateHeader   = "X-Trino-Resource-Estimate"
	ExtraCredentialHeader    = "X-Trino-Extra-Credential"
	QueryDataEncodingHeader  = "X-Trino-Query-Data-Encoding"
)

// Response-direction session directives. Each directive instructs the client
// to add, replace, or remove one field of its session state so that it is
// reflected on every subsequent request.
const (
	SetCatalogHeader             = "X-Trino-Set-Catalog"
	SetSchemaHeader              = "X-Trino-Set-Schema"
	SetPathHeader                = "X-Trino-Set-Path"
	SetSessionHeader             = "X-Trino-Set-Session"
	ClearSessionHeader           = "X-Trino-Clear-Session"
	SetRoleHeader                = "X-Trino-Set-Role"
	AddedPrepareHeader           = "X-Trino-Added-Prepare"
	DeallocatedPrepareHeader     = "X-Trino-Deallocated-Prepare"
	StartedTransactionHeader     = "X-Trino-Started-Transaction-Id"
	ClearTransactionHeader       = "X-Trino-Clear-Transaction-Id"
	SetAuthorizationUserHeader   = "X-Trino-Set-Authorization-User"
	ResetAuthorizationUserHeader = "X-Trino-Reset-Authorization-User"
)
