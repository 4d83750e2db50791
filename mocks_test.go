package funnel_test

import (
	"context"
	"database/sql"

	funnel "github.com/goliatone/go-funnel"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockStatusProvider implements funnel.OrderStatusProvider
type MockStatusProvider struct {
	mock.Mock
}

func (m *MockStatusProvider) OrderStatus(ctx context.Context, id string) (funnel.StatusReport, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(funnel.StatusReport), args.Error(1)
}

func (m *MockStatusProvider) ConfirmOrder(ctx context.Context, id string) (funnel.ConfirmReport, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(funnel.ConfirmReport), args.Error(1)
}

func (m *MockStatusProvider) SupportsManualConfirm() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockSessionProvider implements funnel.SessionProvider
type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) Session(ctx context.Context) (*funnel.SessionSnapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*funnel.SessionSnapshot)
	return snap, args.Error(1)
}

func (m *MockSessionProvider) Refresh(ctx context.Context) (*funnel.SessionSnapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*funnel.SessionSnapshot)
	return snap, args.Error(1)
}

func (m *MockSessionProvider) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockAccountStore implements funnel.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*funnel.Account, error) {
	args := m.Called(ctx, identifier)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccountStore) TrackLogout(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRepositoryManager implements funnel.RepositoryManager. RunInTx hands the
// callback a zero transaction; the repositories underneath are mocks and never
// touch it.
type MockRepositoryManager struct {
	mock.Mock
	accounts *MockAccounts
	orders   *MockOrders
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		accounts: &MockAccounts{},
		orders:   &MockOrders{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() funnel.Accounts { return m.accounts }

func (m *MockRepositoryManager) Orders() funnel.Orders { return m.orders }

// MockOrders implements funnel.Orders
type MockOrders struct {
	mock.Mock
	repository.Repository[*funnel.Order]
}

func (m *MockOrders) GetByRef(ctx context.Context, ref string, criteria ...repository.SelectCriteria) (*funnel.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) GetByRefTx(ctx context.Context, tx bun.IDB, ref string, criteria ...repository.SelectCriteria) (*funnel.Order, error) {
	args := m.Called(ctx, tx, ref)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) SetStatus(ctx context.Context, ref string, status funnel.OrderStatus) (*funnel.Order, error) {
	args := m.Called(ctx, ref, status)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) SetStatusTx(ctx context.Context, tx bun.IDB, ref string, status funnel.OrderStatus) (*funnel.Order, error) {
	args := m.Called(ctx, tx, ref, status)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) MarkCompleted(ctx context.Context, ref string) (*funnel.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) MarkCompletedTx(ctx context.Context, tx bun.IDB, ref string) (*funnel.Order, error) {
	args := m.Called(ctx, tx, ref)
	order, _ := args.Get(0).(*funnel.Order)
	return order, args.Error(1)
}

func (m *MockOrders) ListPendingForAccount(ctx context.Context, accountID uuid.UUID) ([]*funnel.Order, error) {
	args := m.Called(ctx, accountID)
	records, _ := args.Get(0).([]*funnel.Order)
	return records, args.Error(1)
}

// MockAccounts implements funnel.Accounts
type MockAccounts struct {
	mock.Mock
	repository.Repository[*funnel.Account]
}

func (m *MockAccounts) GetOrCreate(ctx context.Context, record *funnel.Account) (*funnel.Account, error) {
	args := m.Called(ctx, record)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *funnel.Account) (*funnel.Account, error) {
	args := m.Called(ctx, tx, record)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) MarkVerified(ctx context.Context, id uuid.UUID) (*funnel.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*funnel.Account, error) {
	args := m.Called(ctx, tx, id)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) MarkPaid(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) MarkPaidTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockAccounts) MarkSetupComplete(ctx context.Context, id uuid.UUID) (*funnel.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) MarkSetupCompleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*funnel.Account, error) {
	args := m.Called(ctx, tx, id)
	account, _ := args.Get(0).(*funnel.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) TrackLogout(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
