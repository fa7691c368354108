package ethernetip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/cip"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) Connected() bool {
	return m.Called().Bool(0)
}

func (m *mockDriver) Open(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDriver) GenericMessage(ctx context.Context, msg cip.GenericMessage) (cip.Tag, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(cip.Tag), args.Error(1)
}

func (m *mockDriver) Close() error {
	return m.Called().Error(0)
}

func newTestConn(t *testing.T, d *mockDriver) *Conn {
	t.Helper()

	conn, err := NewConn("test", d)
	require.NoError(t, err)

	return conn
}

func TestCommand_SetAttributeFailureNamesAddress(t *testing.T) {
	d := &mockDriver{}
	d.On("Connected").Return(true)
	d.On("GenericMessage", mock.Anything, mock.MatchedBy(func(msg cip.GenericMessage) bool {
		return msg.Service == cip.SetAttributeSingle && msg.Class == 4 && msg.Instance == 100 && msg.Attribute == 3
	})).Return(cip.Tag{}, nil)

	conn := newTestConn(t, d)
	req, err := cip.NewValueRequest(4, 100, 3, 12.5, cip.Real)
	require.NoError(t, err)

	err = conn.Command(context.Background(), req)
	require.ErrorIs(t, err, transmission.ErrTransmission)
	require.Contains(t, err.Error(), "4")
	require.Contains(t, err.Error(), "100")
	require.Contains(t, err.Error(), "3")
	d.AssertExpectations(t)
}

func TestCommand_SendsSetWithoutDecodeType(t *testing.T) {
	d := &mockDriver{}
	d.On("Connected").Return(true)
	d.On("GenericMessage", mock.Anything, cip.GenericMessage{
		Service:   cip.SetAttributeSingle,
		Class:     4,
		Instance:  100,
		Attribute: 3,
		Data:      []byte{0x00, 0x00, 0x48, 0x41},
	}).Return(cip.Tag{Value: []byte{}}, nil)

	conn := newTestConn(t, d)
	req, err := cip.NewValueRequest(4, 100, 3, 12.5, cip.Real)
	require.NoError(t, err)

	require.NoError(t, conn.Command(context.Background(), req))
	require.Equal(t, uint64(1), conn.Metrics().Snapshot().Commands)
	d.AssertExpectations(t)
}

func TestPoll_GetAttribute(t *testing.T) {
	require := require.New(t)

	d := &mockDriver{}
	d.On("Connected").Return(false).Once()
	d.On("Open", mock.Anything).Return(nil).Once()
	d.On("GenericMessage", mock.Anything, cip.GenericMessage{
		Service:   cip.GetAttributeSingle,
		Class:     4,
		Instance:  101,
		Attribute: 3,
		Type:      cip.Real,
	}).Return(cip.Tag{Value: float32(12.5), Type: cip.Real}, nil)

	conn := newTestConn(t, d)
	resp, err := conn.Poll(context.Background(), cip.NewRequest(4, 101, 3).WithType(cip.Real))
	require.NoError(err)
	require.Equal(float32(12.5), resp.Deserialize())
	require.Same(cip.Real, resp.Type())
	d.AssertExpectations(t)
}

func TestPoll_EmptyResponse(t *testing.T) {
	d := &mockDriver{}
	d.On("Connected").Return(true)
	d.On("GenericMessage", mock.Anything, mock.Anything).Return(cip.Tag{Error: "object does not exist"}, nil)

	conn := newTestConn(t, d)
	_, err := conn.Poll(context.Background(), cip.NewRequest(1, 1, 7))
	require.ErrorIs(t, err, transmission.ErrEmptyResponse)
	require.ErrorIs(t, err, transmission.ErrTransmission)
	require.Contains(t, err.Error(), "object does not exist")
}

func TestDriverErrorsAreTransmissionErrors(t *testing.T) {
	ioErr := errors.New("broken pipe")

	d := &mockDriver{}
	d.On("Connected").Return(true)
	d.On("GenericMessage", mock.Anything, mock.Anything).Return(cip.Tag{}, ioErr)

	conn := newTestConn(t, d)
	_, err := conn.Poll(context.Background(), cip.NewRequest(1, 1, 1))
	require.ErrorIs(t, err, transmission.ErrTransmission)
	require.ErrorIs(t, err, ioErr)
}

func TestOpenFailure(t *testing.T) {
	d := &mockDriver{}
	d.On("Connected").Return(false)
	d.On("Open", mock.Anything).Return(errors.New("dial tcp: refused"))

	conn := newTestConn(t, d)
	err := conn.Command(context.Background(), cip.NewRequest(4, 100, 3))
	require.ErrorIs(t, err, transmission.ErrTransmission)
	d.AssertNotCalled(t, "GenericMessage", mock.Anything, mock.Anything)
}

func TestRead_Unsupported(t *testing.T) {
	conn := newTestConn(t, &mockDriver{})

	_, err := conn.Read(context.Background())
	require.ErrorIs(t, err, transmission.ErrReadUnsupported)
	require.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestClose(t *testing.T) {
	d := &mockDriver{}
	d.On("Close").Return(nil).Once()

	conn := newTestConn(t, d)
	require.NoError(t, conn.Close())
	require.ErrorIs(t, conn.Close(), transmission.ErrConnClosed)
	d.AssertExpectations(t)
}

func TestConfig(t *testing.T) {
	_, err := NewConfig(WithTimeout(0))
	require.ErrorIs(t, err, transmission.ErrConfig)

	_, err = NewConn("nil", nil)
	require.ErrorIs(t, err, transmission.ErrConfig)

	_, err = Open("10.0.0.5/1/0")
	require.ErrorIs(t, err, transmission.ErrConfig)

	conn, err := Open("10.0.0.5")
	require.NoError(t, err)
	require.Equal(t, "ethernetip:10.0.0.5", conn.Name())
}
