package storage_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

var _ = Describe("SettingsStore", func() {
	var (
		db       *storage.DB
		settings *storage.SettingsStore
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = storage.Open(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		settings = storage.NewSettingsStore(db)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	It("returns an empty map when nothing is stored", func() {
		all, err := settings.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(BeEmpty())
	})

	It("returns ErrNotFound for a missing key", func() {
		_, err := settings.Get(ctx, storage.SettingOllamaHost)
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("overwrites an existing key", func() {
		Expect(settings.Set(ctx, storage.SettingOllamaPort, "11434")).To(Succeed())
		Expect(settings.Set(ctx, storage.SettingOllamaPort, "9000")).To(Succeed())

		value, err := settings.Get(ctx, storage.SettingOllamaPort)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("9000"))
	})

	It("writes many keys at once", func() {
		err := settings.SetMany(ctx, map[string]string{
			storage.SettingOllamaHost:       "gpu-box",
			storage.SettingKeepAlive:        "10m",
			storage.SettingHistoryRetention: "7",
		})
		Expect(err).NotTo(HaveOccurred())

		all, err := settings.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
		Expect(all).To(HaveKeyWithValue(storage.SettingOllamaHost, "gpu-box"))
		Expect(all).To(HaveKeyWithValue(storage.SettingKeepAlive, "10m"))
	})

	It("deletes a key", func() {
		Expect(settings.Set(ctx, storage.SettingKeepAlive, "1h")).To(Succeed())
		Expect(settings.Delete(ctx, storage.SettingKeepAlive)).To(Succeed())

		_, err := settings.Get(ctx, storage.SettingKeepAlive)
		Expect(err).To(HaveOccurred())
	})
})
