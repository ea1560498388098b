package accessory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/teslamotors/vehicle-accessory/mocks"
	"github.com/teslamotors/vehicle-accessory/pkg/accessory"
	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
	"github.com/teslamotors/vehicle-accessory/pkg/session"
)

const vehicleID = account.VehicleID("1492931337156362")

type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// panickyVehicle panics on every presence query.
type panickyVehicle struct {
	accessory.Vehicle
}

func (panickyVehicle) State(context.Context) (session.State, error) {
	panic("presence query exploded")
}

func listing(state string) []account.Vehicle {
	return []account.Vehicle{{IDString: string(vehicleID), State: state}}
}

func ok() *account.CommandResponse {
	return &account.CommandResponse{Result: true}
}

func rejected(reason string) *account.CommandResponse {
	return &account.CommandResponse{Result: false, Reason: reason}
}

func snapshot() *account.VehicleData {
	inside := 19.5
	level := 64
	return &account.VehicleData{
		State: "online",
		ClimateState: account.ClimateState{
			InsideTemp:           &inside,
			DriverTempSetting:    21,
			IsAutoConditioningOn: true,
		},
		VehicleState: account.VehicleState{
			Locked:         false,
			RearTrunk:      1,
			FrontTrunk:     0,
			DriverFrontWin: 1,
			SentryMode:     true,
		},
		ChargeState: &account.ChargeState{
			BatteryLevel:       &level,
			ChargeRate:         0,
			ChargePortLatch:    "Engaged",
			ChargePortDoorOpen: true,
		},
	}
}

var _ = Describe("Accessory", func() {
	var (
		ctx     context.Context
		ctrl    *gomock.Controller
		api     *mocks.SessionAPI
		clock   *fakeClock
		s       *session.Session
		a       *accessory.Accessory
		updates chan accessory.Update
	)

	online := func() {
		api.EXPECT().Vehicles(gomock.Any()).Return(listing("online"), nil).AnyTimes()
	}
	asleep := func() {
		api.EXPECT().Vehicles(gomock.Any()).Return(listing("asleep"), nil).AnyTimes()
	}
	expectCommand := func(cmd *action.Command, rsp *account.CommandResponse) *gomock.Call {
		return api.EXPECT().SendCommand(gomock.Any(), vehicleID, cmd).Return(rsp, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		api = mocks.NewSessionAPI(ctrl)
		clock = &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
		s = session.New(api, "Model 3")
		s.Clock = clock.Now
		s.PollInterval = time.Millisecond

		a = accessory.New("Model 3", s)
		a.AutoStopDelay = 50 * time.Millisecond
		a.IndicatorReset = 10 * time.Millisecond
		a.LightsReset = 10 * time.Millisecond
		updates = make(chan accessory.Update, 16)
		a.Subscribe(func(u accessory.Update) {
			updates <- u
		})
		DeferCleanup(func() {
			a.Close()
			ctrl.Finish()
		})
	})

	Describe("reading while the vehicle is not online", func() {
		BeforeEach(asleep)

		DescribeTable("reports a safe default without fetching vehicle data",
			func(feature string, expected interface{}) {
				value, err := a.Get(ctx, feature)
				Expect(err).ToNot(HaveOccurred())
				Expect(value).To(Equal(expected))
			},
			Entry("locks fail closed", accessory.DoorLocks, accessory.LockSecured),
			Entry("charge port", accessory.ChargePort, accessory.LockSecured),
			Entry("trunk", accessory.Trunk, accessory.LockSecured),
			Entry("frunk", accessory.Frunk, accessory.LockSecured),
			Entry("hvac", accessory.HVAC, accessory.HeatingCoolingOff),
			Entry("charging", accessory.ChargingSwitch, false),
			Entry("charging state", accessory.ChargingStatus, accessory.NotChargeable),
			Entry("vent", accessory.Vent, false),
			Entry("defrost", accessory.Defrost, false),
			Entry("sentry mode", accessory.SentryMode, false),
			Entry("battery", accessory.Battery, 0),
			Entry("inside temperature", accessory.InsideTemperature, 0.0),
			Entry("target temperature", accessory.TargetTemperature, 0.0),
			Entry("connection", accessory.Connection, false),
			Entry("temperature units", accessory.TemperatureUnit, accessory.Fahrenheit),
			Entry("horn", accessory.Horn, false),
			Entry("lights", accessory.Lights, false),
			Entry("conditioning", accessory.Conditioning, false),
		)
	})

	It("reports the last known battery level once the vehicle falls asleep", func() {
		gomock.InOrder(
			api.EXPECT().Vehicles(gomock.Any()).Return(listing("online"), nil),
			api.EXPECT().VehicleData(gomock.Any(), vehicleID).Return(snapshot(), nil),
			api.EXPECT().Vehicles(gomock.Any()).Return(listing("asleep"), nil),
		)

		level, err := a.Get(ctx, accessory.Battery)
		Expect(err).ToNot(HaveOccurred())
		Expect(level).To(Equal(64))

		clock.Advance(session.DefaultPresenceTTL)
		level, err = a.Get(ctx, accessory.Battery)
		Expect(err).ToNot(HaveOccurred())
		Expect(level).To(Equal(64))
	})

	Describe("reading while the vehicle is online", func() {
		BeforeEach(func() {
			online()
			api.EXPECT().VehicleData(gomock.Any(), vehicleID).Return(snapshot(), nil).AnyTimes()
		})

		DescribeTable("projects the snapshot",
			func(feature string, expected interface{}) {
				value, err := a.Get(ctx, feature)
				Expect(err).ToNot(HaveOccurred())
				Expect(value).To(Equal(expected))
			},
			Entry("locks", accessory.DoorLocks, accessory.LockUnsecured),
			Entry("charge port", accessory.ChargePort, accessory.LockUnsecured),
			Entry("trunk", accessory.Trunk, accessory.LockUnsecured),
			Entry("frunk", accessory.Frunk, accessory.LockSecured),
			Entry("hvac", accessory.HVAC, accessory.Auto),
			Entry("charging", accessory.ChargingSwitch, false),
			Entry("charging state", accessory.ChargingStatus, accessory.NotCharging),
			Entry("vent", accessory.Vent, true),
			Entry("defrost", accessory.Defrost, true),
			Entry("sentry mode", accessory.SentryMode, true),
			Entry("battery", accessory.Battery, 64),
			Entry("inside temperature", accessory.InsideTemperature, 19.5),
			Entry("target temperature", accessory.TargetTemperature, 21.0),
			Entry("connection", accessory.Connection, true),
		)

		It("rejects unknown features", func() {
			_, err := a.Get(ctx, "seat_heater")
			Expect(err).To(MatchError(protocol.ErrUnknownFeature))
		})
	})

	It("fails closed when the vehicle's state is unavailable", func() {
		api.EXPECT().Vehicles(gomock.Any()).Return(nil, errors.New("503 service unavailable")).AnyTimes()

		value, err := a.Get(ctx, accessory.DoorLocks)
		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(accessory.LockSecured))

		value, err = a.Get(ctx, accessory.Trunk)
		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(accessory.LockSecured))
	})

	It("propagates snapshot failures once the vehicle is online", func() {
		online()
		api.EXPECT().VehicleData(gomock.Any(), vehicleID).Return(nil, protocol.ErrVehicleAsleep)

		_, err := a.Get(ctx, accessory.DoorLocks)
		Expect(err).To(MatchError(protocol.ErrVehicleAsleep))
	})

	Describe("door locks", func() {
		BeforeEach(online)

		It("publishes the new state after the vehicle accepts the command", func() {
			expectCommand(action.Lock(), ok())

			Expect(a.Set(ctx, accessory.DoorLocks, accessory.LockSecured)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.DoorLocks, Value: accessory.LockSecured})))
		})

		It("unlocks", func() {
			expectCommand(action.Unlock(), ok())

			Expect(a.Set(ctx, accessory.DoorLocks, accessory.LockUnsecured)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.DoorLocks, Value: accessory.LockUnsecured})))
		})

		It("returns the vehicle's reason on failure", func() {
			expectCommand(action.Lock(), rejected("timeout"))

			err := a.Set(ctx, accessory.DoorLocks, accessory.LockSecured)
			Expect(err).To(MatchError(ContainSubstring("timeout")))
			Expect(updates).ToNot(Receive())
		})

		It("treats an accepted command with a reason as a failure", func() {
			expectCommand(action.Lock(), &account.CommandResponse{Result: true, Reason: "user_present"})

			err := a.Set(ctx, accessory.DoorLocks, accessory.LockSecured)
			Expect(err).To(MatchError(ContainSubstring("user_present")))
			Expect(updates).ToNot(Receive())
		})

		It("rejects values outside the lock domain", func() {
			Expect(a.Set(ctx, accessory.DoorLocks, accessory.LockJammed)).To(MatchError(protocol.ErrInvalidValue))
			Expect(a.Set(ctx, accessory.DoorLocks, true)).To(MatchError(protocol.ErrInvalidValue))
		})
	})

	Describe("trunks", func() {
		It("refuses to close without sending a command", func() {
			Expect(a.Set(ctx, accessory.Trunk, accessory.LockSecured)).To(MatchError(protocol.ErrUnsupportedOperation))
			Expect(a.Set(ctx, accessory.Frunk, accessory.LockSecured)).To(MatchError(protocol.ErrUnsupportedOperation))
		})

		It("opens the rear trunk", func() {
			online()
			expectCommand(action.OpenTrunk(), ok())

			Expect(a.Set(ctx, accessory.Trunk, accessory.LockUnsecured)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Trunk, Value: accessory.LockUnsecured})))
		})

		It("opens the frunk", func() {
			online()
			expectCommand(action.OpenFrunk(), ok())

			Expect(a.Set(ctx, accessory.Frunk, accessory.LockUnsecured)).To(Succeed())
		})
	})

	Describe("conditioning", func() {
		BeforeEach(online)

		It("stops climate automatically when the vehicle is parked", func() {
			stopped := make(chan struct{})
			expectCommand(action.ClimateOn(), ok())
			api.EXPECT().DriveState(gomock.Any(), vehicleID).Return(&account.DriveState{}, nil)
			expectCommand(action.ClimateOff(), ok()).Do(func(context.Context, account.VehicleID, *action.Command) {
				close(stopped)
			})

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: true})))
			on, err := a.Get(ctx, accessory.Conditioning)
			Expect(err).ToNot(HaveOccurred())
			Expect(on).To(BeTrue())

			Eventually(stopped).Should(BeClosed())
			Eventually(updates).Should(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: false})))
			on, err = a.Get(ctx, accessory.Conditioning)
			Expect(err).ToNot(HaveOccurred())
			Expect(on).To(BeFalse())
		})

		It("leaves climate on while the vehicle is in gear", func() {
			drive := "D"
			expectCommand(action.ClimateOn(), ok())
			api.EXPECT().DriveState(gomock.Any(), vehicleID).Return(&account.DriveState{ShiftState: &drive}, nil)

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			Expect(updates).To(Receive())
			Eventually(updates).Should(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: false})))
		})

		It("cancels the automatic stop when turned off", func() {
			expectCommand(action.ClimateOn(), ok())
			expectCommand(action.ClimateOff(), ok()).Times(1)

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			Expect(a.Set(ctx, accessory.Conditioning, false)).To(Succeed())
			time.Sleep(2 * a.AutoStopDelay)

			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: true})))
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: false})))
			Expect(updates).ToNot(Receive())
		})

		It("keeps the automatic stop armed when the vehicle rejects a stop", func() {
			a.AutoStopDelay = time.Minute
			expectCommand(action.ClimateOn(), ok())
			expectCommand(action.ClimateOff(), rejected("timeout"))

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			Expect(a.Set(ctx, accessory.Conditioning, false)).To(MatchError(ContainSubstring("timeout")))

			on, err := a.Get(ctx, accessory.Conditioning)
			Expect(err).ToNot(HaveOccurred())
			Expect(on).To(BeTrue())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Conditioning, Value: true})))
			Expect(updates).ToNot(Receive())
		})

		It("re-arms the timer when started again", func() {
			a.AutoStopDelay = 200 * time.Millisecond
			stopped := make(chan struct{})
			expectCommand(action.ClimateOn(), ok()).Times(2)
			api.EXPECT().DriveState(gomock.Any(), vehicleID).Return(&account.DriveState{}, nil).Times(1)
			expectCommand(action.ClimateOff(), ok()).Do(func(context.Context, account.VehicleID, *action.Command) {
				close(stopped)
			})

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			time.Sleep(100 * time.Millisecond)
			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			Eventually(stopped).Should(BeClosed())
		})

		It("cancels pending tasks on close", func() {
			expectCommand(action.ClimateOn(), ok())

			Expect(a.Set(ctx, accessory.Conditioning, true)).To(Succeed())
			a.Close()
			time.Sleep(2 * a.AutoStopDelay)
		})
	})

	Describe("charging", func() {
		BeforeEach(online)

		It("treats an already complete charge as success", func() {
			expectCommand(action.ChargeStart(), rejected("complete"))

			Expect(a.Set(ctx, accessory.ChargingSwitch, true)).To(Succeed())
			Eventually(updates).Should(Receive(Equal(accessory.Update{Feature: accessory.ChargingSwitch, Value: false})))
		})

		It("treats stopping an idle charger as success", func() {
			expectCommand(action.ChargeStop(), rejected("not_charging"))

			Expect(a.Set(ctx, accessory.ChargingSwitch, false)).To(Succeed())
		})

		It("fails on other reasons", func() {
			expectCommand(action.ChargeStart(), rejected("disconnected"))

			err := a.Set(ctx, accessory.ChargingSwitch, true)
			reason, ok := protocol.RemoteReason(err)
			Expect(ok).To(BeTrue())
			Expect(reason).To(Equal("disconnected"))
		})

		It("is read-only for the charging state", func() {
			Expect(a.Set(ctx, accessory.ChargingStatus, accessory.Charging)).To(MatchError(protocol.ErrReadOnly))
		})
	})

	Describe("momentary switches", func() {
		BeforeEach(online)

		It("resets the horn immediately", func() {
			expectCommand(action.HonkHorn(), ok())

			Expect(a.Set(ctx, accessory.Horn, true)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Horn, Value: false})))
		})

		It("resets the lights after a delay", func() {
			expectCommand(action.FlashLights(), ok())

			Expect(a.Set(ctx, accessory.Lights, true)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Lights, Value: true})))
			Eventually(updates).Should(Receive(Equal(accessory.Update{Feature: accessory.Lights, Value: false})))
		})

		It("does nothing when switched off", func() {
			Expect(a.Set(ctx, accessory.Horn, false)).To(Succeed())
			Expect(a.Set(ctx, accessory.Lights, false)).To(Succeed())
		})
	})

	Describe("other commands", func() {
		BeforeEach(online)

		DescribeTable("sends the matching command",
			func(feature string, value interface{}, cmd *action.Command) {
				expectCommand(cmd, ok())
				Expect(a.Set(ctx, feature, value)).To(Succeed())
			},
			Entry("vent", accessory.Vent, true, action.VentWindows()),
			Entry("close windows", accessory.Vent, false, action.CloseWindows()),
			Entry("defrost", accessory.Defrost, true, action.SetPreconditioningMax(true)),
			Entry("sentry mode", accessory.SentryMode, false, action.SetSentryMode(false)),
			Entry("charge port", accessory.ChargePort, accessory.LockUnsecured, action.ChargePortOpen()),
			Entry("hvac auto", accessory.HVAC, accessory.Auto, action.ClimateOn()),
			Entry("hvac off", accessory.HVAC, accessory.HeatingCoolingOff, action.ClimateOff()),
			Entry("target temperature", accessory.TargetTemperature, 21.5, action.ChangeClimateTemp(21.5, 21.5)),
		)
	})

	Describe("connection", func() {
		It("wakes the vehicle", func() {
			gomock.InOrder(
				api.EXPECT().Vehicles(gomock.Any()).Return(listing("asleep"), nil),
				api.EXPECT().WakeUp(gomock.Any(), vehicleID).Return(&account.Vehicle{State: "asleep"}, nil),
				api.EXPECT().Vehicles(gomock.Any()).Return(listing("online"), nil),
			)

			Expect(a.Set(ctx, accessory.Connection, true)).To(Succeed())
			Expect(updates).To(Receive(Equal(accessory.Update{Feature: accessory.Connection, Value: true})))
		})

		It("succeeds immediately when the vehicle is online", func() {
			online()
			Expect(a.Set(ctx, accessory.Connection, true)).To(Succeed())
		})

		It("ignores requests to disconnect", func() {
			Expect(a.Set(ctx, accessory.Connection, false)).To(Succeed())
		})
	})

	Describe("callbacks", func() {
		It("invokes the get callback once with the value", func() {
			asleep()
			done := make(chan interface{}, 2)
			a.HandleGet(ctx, accessory.DoorLocks, func(err error, value interface{}) {
				defer GinkgoRecover()
				Expect(err).ToNot(HaveOccurred())
				done <- value
			})
			Eventually(done).Should(Receive(Equal(accessory.LockSecured)))
			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		})

		It("invokes the get callback once with an error", func() {
			var calls atomic.Int32
			errs := make(chan error, 2)
			a.HandleGet(ctx, "warp_drive", func(err error, value interface{}) {
				defer GinkgoRecover()
				calls.Add(1)
				Expect(value).To(BeNil())
				errs <- err
			})
			Eventually(errs).Should(Receive(MatchError(protocol.ErrUnknownFeature)))
			Consistently(calls.Load, 50*time.Millisecond).Should(BeEquivalentTo(1))
		})

		It("invokes the set callback once with an error", func() {
			errs := make(chan error, 2)
			a.HandleSet(ctx, accessory.Battery, 50, func(err error) {
				errs <- err
			})
			Eventually(errs).Should(Receive(MatchError(protocol.ErrReadOnly)))
			Consistently(errs, 50*time.Millisecond).ShouldNot(Receive())
		})

		It("invokes the set callback on success", func() {
			online()
			expectCommand(action.SetSentryMode(true), ok())
			errs := make(chan error, 2)
			a.HandleSet(ctx, accessory.SentryMode, true, func(err error) {
				errs <- err
			})
			Eventually(errs).Should(Receive(BeNil()))
		})

		It("reports panics as errors", func() {
			broken := accessory.New("Broken", panickyVehicle{})
			defer broken.Close()

			errs := make(chan error, 2)
			broken.HandleGet(ctx, accessory.DoorLocks, func(err error, value interface{}) {
				defer GinkgoRecover()
				Expect(value).To(BeNil())
				errs <- err
			})
			Eventually(errs).Should(Receive(MatchError(ContainSubstring("presence query exploded"))))
			Consistently(errs, 50*time.Millisecond).ShouldNot(Receive())
		})

		It("resolves futures", func() {
			asleep()
			value, err := a.GetAsync(ctx, accessory.SentryMode).Wait(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(BeFalse())

			_, err = a.SetAsync(ctx, accessory.InsideTemperature, 20.0).Wait(ctx)
			Expect(err).To(MatchError(protocol.ErrReadOnly))
		})
	})
})
